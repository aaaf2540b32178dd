// Package config loads the run configuration from YAML with environment
// overrides for credentials.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Gateway providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderNone      = "none"
)

// GatewayConfig selects and parameterizes the external classification
// model. The API key is normally injected through the environment, not
// written into the YAML file.
type GatewayConfig struct {
	Provider       string  `yaml:"provider"`
	Model          string  `yaml:"model"`
	APIKey         string  `yaml:"api_key"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	CostPerMTok    float64 `yaml:"cost_per_mtok"`
}

// Timeout returns the per-call gateway deadline.
func (g GatewayConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSeconds) * time.Second
}

// Config is the full run configuration.
type Config struct {
	InputFile      string `yaml:"input_file"`
	OutputFile     string `yaml:"output_file"`
	DictionaryFile string `yaml:"dictionary_file"`
	BackupDir      string `yaml:"backup_dir"`
	MaxBackups     int    `yaml:"max_backups"`
	LogFile        string `yaml:"log_file"`

	// ConfirmLimit caps how many interactive prompts one run may issue;
	// past the cap the remaining cases fall back to their automatic path.
	ConfirmLimit int `yaml:"confirm_limit"`

	Gateway GatewayConfig `yaml:"gateway"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		InputFile:      filepath.Join("datos", "hubspot_export.csv"),
		OutputFile:     filepath.Join("datos", "datos_limpios.csv"),
		DictionaryFile: "diccionario_normalizaciones.json",
		BackupDir:      "backups",
		MaxBackups:     10,
		LogFile:        filepath.Join("logs", "ejecucion.log"),
		ConfirmLimit:   20,
		Gateway: GatewayConfig{
			Provider:       ProviderAnthropic,
			Model:          "claude-sonnet-4-20250514",
			TimeoutSeconds: 60,
			CostPerMTok:    3.0,
		},
	}
}

// Load reads a YAML file over the defaults and applies environment
// overrides. An empty path loads defaults only.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

// applyEnv pulls the provider credential from the environment. The
// environment always wins over a key written in the file.
func (c *Config) applyEnv() {
	var envKey string
	switch c.Gateway.Provider {
	case ProviderGemini:
		envKey = "GEMINI_API_KEY"
	default:
		envKey = "ANTHROPIC_API_KEY"
	}
	if v := os.Getenv(envKey); v != "" {
		c.Gateway.APIKey = v
	}
}

// Validate checks the startup preconditions that must halt the run:
// a readable input file and, when a gateway provider is configured, a
// credential for it.
func (c *Config) Validate() error {
	if c.InputFile == "" {
		return fmt.Errorf("no input file configured")
	}
	if _, err := os.Stat(c.InputFile); err != nil {
		return fmt.Errorf("input file %s: %w", c.InputFile, err)
	}
	switch c.Gateway.Provider {
	case ProviderNone:
	case ProviderAnthropic, ProviderGemini:
		if c.Gateway.APIKey == "" {
			return fmt.Errorf("gateway provider %q configured but no API key set", c.Gateway.Provider)
		}
	default:
		return fmt.Errorf("unknown gateway provider %q", c.Gateway.Provider)
	}
	return nil
}

// EnsureDirs creates the working directories the run writes into.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{
		filepath.Dir(c.OutputFile),
		filepath.Dir(c.LogFile),
		c.BackupDir,
	} {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}
