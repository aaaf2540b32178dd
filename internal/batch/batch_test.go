package batch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadnorm/internal/config"
	"leadnorm/internal/confirm"
	"leadnorm/internal/dictionary"
	"leadnorm/internal/gateway"
	"leadnorm/internal/lexicon"
	"leadnorm/internal/logging"
	"leadnorm/internal/resolver"
	"leadnorm/internal/tabular"
	"leadnorm/internal/usage"
)

type countingGateway struct {
	answer string
	calls  int
}

func (c *countingGateway) Classify(ctx context.Context, intent gateway.Intent, text string) (string, error) {
	c.calls++
	return c.answer, nil
}

func writeInput(t *testing.T, dir string, table *tabular.Table) string {
	t.Helper()
	path := filepath.Join(dir, "export.csv")
	require.NoError(t, tabular.WriteCSV(path, table))
	return path
}

func newProcessor(t *testing.T, dir, input string, gw gateway.Classifier, conf confirm.Confirmer, interactive bool) *Processor {
	t.Helper()
	cfg := config.Default()
	cfg.InputFile = input
	cfg.OutputFile = filepath.Join(dir, "limpios.csv")
	cfg.DictionaryFile = filepath.Join(dir, "diccionario.json")
	cfg.BackupDir = filepath.Join(dir, "backups")

	dict := dictionary.New()
	tracker := usage.NewTracker()
	res := resolver.New(lexicon.Default(), dict, resolver.Options{
		Gateway: gw,
		Confirm: conf,
	})
	return &Processor{
		Config:  cfg,
		Lexicon: lexicon.Default(),
		Dict:    dict,
		Store: &dictionary.Store{
			Path:       cfg.DictionaryFile,
			BackupDir:  cfg.BackupDir,
			MaxBackups: cfg.MaxBackups,
			Log:        logging.Discard(),
		},
		Resolver:    res,
		Tracker:     tracker,
		Log:         logging.Discard(),
		Interactive: interactive,
	}
}

func TestRunEndToEnd(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, &tabular.Table{
		Headers: []string{
			"Colegio Actual", "En qué colegio estudias actualmente?",
			"Grado Académico", "Grado Académico.1",
			"Associated Form Submission", "Carrera de Interés",
			"First Page Seen", "Last Page Seen",
		},
		Rows: [][]string{
			{"USAC", "", "", "4to", ".elementor-form; Form Lic Marketing", "", "https://uvgbridge.gt/lic-marketing", "https://uvgbridge.gt/"},
			{"no estudio", "", "tercero básico", "", "", "administracion_de_empresas", "https://facebook.com/ads", ""},
			{"", "Instituto Rafael Landívar", "graduado de la universidad", "", ".elementor-form", "", "https://example.com/landing", ""},
		},
	})

	p := newProcessor(t, dir, input, nil, nil, false)
	stats, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Rows)
	assert.NotEmpty(t, stats.RunID)

	out, err := tabular.ReadCSV(p.Config.OutputFile)
	require.NoError(t, err)

	// Duplicate and helper columns are gone, no rows dropped.
	assert.Equal(t, []string{
		"Colegio Actual", "Grado Académico", "Associated Form Submission",
		"Carrera de Interés", "First Page Seen", "Last Page Seen",
	}, out.Headers)
	require.Len(t, out.Rows, 3)

	inst := out.ColumnIndex("Colegio Actual")
	grade := out.ColumnIndex("Grado Académico")
	career := out.ColumnIndex("Carrera de Interés")
	first := out.ColumnIndex("First Page Seen")
	last := out.ColumnIndex("Last Page Seen")

	// Three distinct canonical institution outcomes.
	assert.Equal(t, "Universidad de San Carlos de Guatemala (USAC)", out.Cell(0, inst))
	assert.Equal(t, lexicon.Other, out.Cell(1, inst))
	assert.Equal(t, "Instituto Rafael Landívar", out.Cell(2, inst))

	assert.Equal(t, "4to. Diversificado", out.Cell(0, grade))
	assert.Equal(t, "3ro. Básico", out.Cell(1, grade))
	assert.Equal(t, lexicon.GradeGraduatedUniv, out.Cell(2, grade))

	assert.Equal(t, lexicon.ProgramIntlMarketing, out.Cell(0, career))
	assert.Equal(t, lexicon.ProgramBusinessAdmin, out.Cell(1, career))
	assert.Equal(t, lexicon.Unspecified, out.Cell(2, career))

	assert.Equal(t, lexicon.ProgramIntlMarketing, out.Cell(0, first))
	assert.Equal(t, lexicon.BridgePrincipal, out.Cell(0, last))
	assert.Equal(t, lexicon.Other, out.Cell(1, first))
	assert.Equal(t, lexicon.Other, out.Cell(2, first))

	// The run persisted the three new institution classifications.
	saved := p.Store.Load()
	for raw, want := range map[string]string{
		"USAC":                      "Universidad de San Carlos de Guatemala (USAC)",
		"no estudio":                lexicon.Other,
		"Instituto Rafael Landívar": "Instituto Rafael Landívar",
	} {
		got, ok := saved.Get(dictionary.Institutions, raw)
		require.True(t, ok, "missing dictionary entry for %q", raw)
		assert.Equal(t, want, got)
	}
	assert.GreaterOrEqual(t, stats.NewClassifications, 3)
}

func TestRunResolvesEachUniqueValueOnce(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, &tabular.Table{
		Headers: []string{"Colegio Actual", "Grado Académico"},
		Rows: [][]string{
			{"Colegio Misterioso Zona 10", "4to"},
			{"Colegio Misterioso Zona 10", "4to"},
			{"Colegio Misterioso Zona 10", "4to"},
		},
	})

	gw := &countingGateway{answer: "Colegio Misterioso"}
	p := newProcessor(t, dir, input, gw, nil, false)
	_, err := p.Run(context.Background())
	require.NoError(t, err)

	// One gateway call for three rows sharing the value, and the same
	// classification broadcast to all of them.
	assert.Equal(t, 1, gw.calls)

	out, err := tabular.ReadCSV(p.Config.OutputFile)
	require.NoError(t, err)
	idx := out.ColumnIndex("Colegio Actual")
	for i := 0; i < 3; i++ {
		assert.Equal(t, "Colegio Misterioso", out.Cell(i, idx))
	}
}

func TestRunInteractiveConfirmLimit(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, &tabular.Table{
		Headers: []string{"Colegio Actual"},
		Rows:    [][]string{{"igs"}, {"ecc"}, {"xd"}},
	})

	script := &confirm.Scripted{Answers: []string{"Instituto IGS", "Escuela ECC"}}
	p := newProcessor(t, dir, input, nil, script, true)
	p.Config.ConfirmLimit = 2

	_, err := p.Run(context.Background())
	require.NoError(t, err)

	// Only the first two unique values prompted; the third fell back to
	// its non-interactive path (pass-through).
	assert.Equal(t, []string{"igs", "ecc"}, script.Asked)

	out, err := tabular.ReadCSV(p.Config.OutputFile)
	require.NoError(t, err)
	idx := out.ColumnIndex("Colegio Actual")
	assert.Equal(t, "Instituto IGS", out.Cell(0, idx))
	assert.Equal(t, "Escuela ECC", out.Cell(1, idx))
	assert.Equal(t, "xd", out.Cell(2, idx))
}

func TestRunMissingInputFails(t *testing.T) {
	dir := t.TempDir()
	p := newProcessor(t, dir, filepath.Join(dir, "absent.csv"), nil, nil, false)

	_, err := p.Run(context.Background())
	assert.Error(t, err)
}

func TestRunIdempotentSecondPass(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, &tabular.Table{
		Headers: []string{"Colegio Actual"},
		Rows:    [][]string{{"USAC"}},
	})

	p := newProcessor(t, dir, input, nil, nil, false)
	_, err := p.Run(context.Background())
	require.NoError(t, err)

	// Second run loads the persisted dictionary and reuses the stored
	// classification instead of re-resolving.
	p2 := newProcessor(t, dir, input, nil, nil, false)
	p2.Dict = p2.Store.Load()
	p2.Resolver = resolver.New(lexicon.Default(), p2.Dict, resolver.Options{})

	stats, err := p2.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.NewClassifications)

	out, err := tabular.ReadCSV(p2.Config.OutputFile)
	require.NoError(t, err)
	assert.Equal(t, "Universidad de San Carlos de Guatemala (USAC)", out.Cell(0, 0))

	// The overwrite left a timestamped backup behind.
	entries, err := os.ReadDir(p2.Config.BackupDir)
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}
