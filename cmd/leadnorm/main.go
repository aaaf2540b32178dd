package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"leadnorm/internal/batch"
	"leadnorm/internal/config"
	"leadnorm/internal/confirm"
	"leadnorm/internal/dictionary"
	"leadnorm/internal/gateway"
	"leadnorm/internal/lexicon"
	"leadnorm/internal/logging"
	"leadnorm/internal/resolver"
	"leadnorm/internal/usage"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// run flags
	inputFile    string
	outputFile   string
	outputFormat string
	autoMode     bool
	interactive  bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "leadnorm",
	Short: "leadnorm - normalizador de leads educativos",
	Long: `leadnorm limpia y normaliza exportaciones de leads (colegios, grados
académicos, formularios y URLs de aterrizaje) hacia una taxonomía
consistente para reportes de BI.

Las clasificaciones resueltas se acumulan en un diccionario persistente
que se reutiliza entre ejecuciones; los casos que las reglas locales no
resuelven pasan por el modelo generativo configurado y, en modo
interactivo, por confirmación del operador.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Ejecuta una pasada de normalización sobre el archivo de entrada",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if inputFile != "" {
			cfg.InputFile = inputFile
		}
		if outputFile != "" {
			cfg.OutputFile = outputFile
		}
		if outputFormat != "" {
			if outputFormat != "csv" && outputFormat != "xlsx" {
				return fmt.Errorf("unknown output format %q (csv|xlsx)", outputFormat)
			}
			ext := filepath.Ext(cfg.OutputFile)
			cfg.OutputFile = strings.TrimSuffix(cfg.OutputFile, ext) + "." + outputFormat
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := cfg.EnsureDirs(); err != nil {
			return err
		}

		runLog, err := logging.New(cfg.LogFile)
		if err != nil {
			return fmt.Errorf("open run log: %w", err)
		}
		defer runLog.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		tracker := usage.NewTracker()
		gw, err := buildGateway(ctx, cfg.Gateway, tracker)
		if err != nil {
			return err
		}

		store := &dictionary.Store{
			Path:       cfg.DictionaryFile,
			BackupDir:  cfg.BackupDir,
			MaxBackups: cfg.MaxBackups,
			Log:        runLog,
		}
		dict := store.Load()
		logger.Info("dictionary loaded",
			zap.Int("institutions", dict.Len(dictionary.Institutions)),
			zap.Int("grades", dict.Len(dictionary.Grades)),
			zap.Int("urls", dict.Len(dictionary.URLs)),
			zap.Int("forms", dict.Len(dictionary.Forms)))

		lex := lexicon.Default()
		res := resolver.New(lex, dict, resolver.Options{
			Gateway: gw,
			Confirm: confirm.NewTerminal(nil, nil),
			Log:     runLog,
		})

		p := &batch.Processor{
			Config:      cfg,
			Lexicon:     lex,
			Dict:        dict,
			Store:       store,
			Resolver:    res,
			Tracker:     tracker,
			Log:         runLog,
			Interactive: interactive && !autoMode,
		}
		stats, err := p.Run(ctx)
		if err != nil {
			return err
		}
		logger.Info("run finished",
			zap.String("run_id", stats.RunID),
			zap.Int("rows", stats.Rows),
			zap.Int("new_classifications", stats.NewClassifications),
			zap.Int64("gateway_calls", stats.GatewayCalls),
			zap.Float64("estimated_cost_usd", stats.EstimatedCost))
		return nil
	},
}

// buildGateway instantiates the configured classification provider.
func buildGateway(ctx context.Context, cfg config.GatewayConfig, tracker *usage.Tracker) (gateway.Classifier, error) {
	switch cfg.Provider {
	case config.ProviderNone:
		return nil, nil
	case config.ProviderGemini:
		return gateway.NewGeminiClient(ctx, cfg.APIKey, cfg.Model, tracker)
	case config.ProviderAnthropic:
		return gateway.NewAnthropicClient(gateway.AnthropicConfig{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			Timeout: cfg.Timeout(),
		}, tracker)
	default:
		return nil, fmt.Errorf("unknown gateway provider %q", cfg.Provider)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Registro detallado")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Ruta del archivo de configuración YAML")

	runCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Archivo de entrada (csv|xlsx)")
	runCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Archivo de salida (csv|xlsx)")
	runCmd.Flags().StringVar(&outputFormat, "format", "", "Formato de salida (csv|xlsx); por defecto según la extensión")
	runCmd.Flags().BoolVar(&interactive, "interactive", true, "Confirmación interactiva de casos ambiguos")
	runCmd.Flags().BoolVar(&autoMode, "auto", false, "Modo automático: sin prompts al operador")

	rootCmd.AddCommand(runCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, strings.TrimSpace(err.Error()))
		os.Exit(1)
	}
}
