// Package batch drives one normalization pass over a lead export:
// column unification, unique-value identification passes, row
// broadcast, column replacement, output, dictionary persistence, and
// the run report.
package batch

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"leadnorm/internal/config"
	"leadnorm/internal/dictionary"
	"leadnorm/internal/lexicon"
	"leadnorm/internal/logging"
	"leadnorm/internal/resolver"
	"leadnorm/internal/tabular"
	"leadnorm/internal/textmatch"
	"leadnorm/internal/usage"
)

// Source column names of the CRM export.
const (
	colGrade        = "Grado Académico"
	colInstitution  = "Colegio Actual"
	colInstitution2 = "En qué colegio estudias actualmente?"
	colForm         = "Associated Form Submission"
	colCareer       = "Carrera de Interés"
	colFirstPage    = "First Page Seen"
	colLastPage     = "Last Page Seen"
)

// Stats summarizes one run for the caller.
type Stats struct {
	RunID              string
	Rows               int
	NewClassifications int
	GatewayCalls       int64
	TokensUsed         int64
	EstimatedCost      float64
}

// Processor owns one batch run. It is single-threaded: the dictionary's
// read-check-then-write pattern is not safe for concurrent writers, so
// rows are never processed in parallel.
type Processor struct {
	Config   config.Config
	Lexicon  *lexicon.Lexicon
	Dict     *dictionary.Dictionary
	Store    *dictionary.Store // nil skips persistence
	Resolver *resolver.Resolver
	Tracker  *usage.Tracker
	Log      *logging.RunLog

	// Interactive enables the operator identification passes. The
	// institution pass is additionally capped at Config.ConfirmLimit
	// prompts.
	Interactive bool
}

var titleCaser = cases.Title(language.Spanish)

// Run executes the full pipeline. Only reading the input and writing
// the output can fail; classification anomalies degrade per field and
// never abort the batch.
func (p *Processor) Run(ctx context.Context) (Stats, error) {
	stats := Stats{RunID: uuid.NewString()}

	p.Log.Log(strings.Repeat("=", 60))
	p.Log.Log("INICIANDO NORMALIZACIÓN")
	p.Log.Logf("Ejecución: %s", stats.RunID)
	p.Log.Log(strings.Repeat("=", 60))

	table, err := tabular.Read(p.Config.InputFile)
	if err != nil {
		return stats, fmt.Errorf("read input: %w", err)
	}
	stats.Rows = len(table.Rows)
	p.Log.Logf("Leído: %d leads (%s)", stats.Rows, p.Config.InputFile)

	institutions, grades := p.unifyColumns(table)

	p.normalizeInstitutions(ctx, institutions)
	p.normalizeGrades(grades)
	forms := p.cleanForms(table)
	careers := p.completeCareers(table, forms)
	firstPages, lastPages := p.categorizeURLs(table)

	p.replaceColumns(table, institutions, grades, forms, careers, firstPages, lastPages)

	if err := tabular.Write(p.Config.OutputFile, table); err != nil {
		return stats, fmt.Errorf("write output: %w", err)
	}
	p.Log.Logf("Archivo guardado: %s", p.Config.OutputFile)

	if p.Store != nil {
		if err := p.Store.Save(p.Dict); err != nil {
			p.Log.Logf("Error guardando diccionario: %v", err)
		} else {
			p.Log.Log("Diccionario guardado")
		}
	}

	stats.NewClassifications = len(p.Resolver.Audit())
	if p.Tracker != nil {
		stats.GatewayCalls = p.Tracker.Calls()
		stats.TokensUsed = p.Tracker.Tokens()
		stats.EstimatedCost = p.Tracker.Cost(p.Config.Gateway.CostPerMTok)
	}
	p.report(stats)
	return stats, nil
}

// unifyColumns coalesces the duplicated source columns into one value
// per row: the grade from the first non-empty of the repeated grade
// columns, the institution from the primary column with the secondary
// question column as fallback.
func (p *Processor) unifyColumns(t *tabular.Table) (institutions, grades []string) {
	p.Log.Log("Unificando columnas...")

	gradeCols := t.ColumnIndices(colGrade)
	instCols := []int{t.ColumnIndex(colInstitution), t.ColumnIndex(colInstitution2)}

	institutions = make([]string, len(t.Rows))
	grades = make([]string, len(t.Rows))
	for i := range t.Rows {
		grades[i] = firstNonEmpty(t, i, gradeCols)
		institutions[i] = firstNonEmpty(t, i, instCols)
	}
	return institutions, grades
}

func firstNonEmpty(t *tabular.Table, row int, cols []int) string {
	for _, c := range cols {
		if c < 0 {
			continue
		}
		if v := strings.TrimSpace(t.Cell(row, c)); v != "" {
			return v
		}
	}
	return ""
}

// normalizeInstitutions resolves every unique institution once, with
// operator prompts for the first ConfirmLimit unique values, then
// broadcasts the memoized results over the rows in place.
func (p *Processor) normalizeInstitutions(ctx context.Context, values []string) {
	p.Log.Log("Normalizando colegios...")

	unique := uniqueNonEmpty(values)
	p.Log.Logf("Colegios únicos: %d", len(unique))

	for i, v := range unique {
		p.Resolver.SetInteractive(p.Interactive && i < p.Config.ConfirmLimit)
		p.Resolver.Institution(ctx, v)
	}
	p.Resolver.SetInteractive(false)

	for i, v := range values {
		if strings.TrimSpace(v) == "" {
			values[i] = lexicon.Other
			continue
		}
		values[i] = p.Resolver.Institution(ctx, v).Value
	}
}

// normalizeGrades runs an interactive identification pass over unique
// grades, then broadcasts non-interactively so a blank cell never
// prompts per row.
func (p *Processor) normalizeGrades(values []string) {
	p.Log.Log("Normalizando grados académicos...")

	p.Resolver.SetInteractive(p.Interactive)
	for _, v := range uniqueNonEmpty(values) {
		p.Resolver.Grade(v)
	}
	p.Resolver.SetInteractive(false)

	for i, v := range values {
		values[i] = p.Resolver.Grade(v).Value
	}
}

// cleanForms reduces the form-submission column to one identifier per
// row and runs the interactive mapping pass over the unique survivors.
func (p *Processor) cleanForms(t *tabular.Table) []string {
	p.Log.Logf("Procesando %s...", colForm)

	forms := make([]string, len(t.Rows))
	idx := t.ColumnIndex(colForm)
	for i := range t.Rows {
		if idx < 0 {
			forms[i] = textmatch.Fold(lexicon.Other)
			continue
		}
		forms[i] = resolver.CleanFormID(t.Cell(i, idx), p.Lexicon)
	}

	if p.Interactive {
		unique := uniqueNonEmpty(forms)
		p.Log.Logf("Formularios únicos: %d", len(unique))
		p.Resolver.SetInteractive(true)
		for _, f := range unique {
			p.Resolver.FormProgram(f)
		}
		p.Resolver.SetInteractive(false)
	}
	return forms
}

// completeCareers fills the declared-program column: an existing value
// is canonicalized through the career-slug map (underscored CSV variant
// first, then the plain form, else a cleaned title-cased rendering); an
// empty one is mapped from the row's cleaned form identifier, falling
// back to Sin especificar.
func (p *Processor) completeCareers(t *tabular.Table, forms []string) []string {
	idx := t.ColumnIndex(colCareer)
	if idx < 0 {
		return nil
	}
	p.Log.Logf("Completando %s...", colCareer)

	out := make([]string, len(t.Rows))
	for i := range t.Rows {
		out[i] = p.completeCareer(t.Cell(i, idx), forms[i])
	}
	return out
}

func (p *Processor) completeCareer(current, form string) string {
	current = strings.TrimSpace(current)
	if current != "" {
		folded := textmatch.Fold(current)
		if prog, ok := p.Lexicon.CareerSlugs[strings.ReplaceAll(folded, " ", "_")]; ok {
			return prog
		}
		if prog, ok := p.Lexicon.CareerSlugs[folded]; ok {
			return prog
		}
		return titleCaser.String(strings.ReplaceAll(current, "_", " "))
	}
	if res := p.Resolver.FormProgram(form); res.Value != "" {
		return res.Value
	}
	return lexicon.Unspecified
}

// categorizeURLs runs the interactive identification pass over the
// union of unique landing URLs, then maps both page columns per row.
func (p *Processor) categorizeURLs(t *tabular.Table) (first, last []string) {
	firstIdx := t.ColumnIndex(colFirstPage)
	lastIdx := t.ColumnIndex(colLastPage)
	if firstIdx < 0 && lastIdx < 0 {
		return nil, nil
	}
	p.Log.Log("Categorizando URLs...")

	if p.Interactive {
		var all []string
		for i := range t.Rows {
			all = append(all, t.Cell(i, firstIdx), t.Cell(i, lastIdx))
		}
		unique := uniqueNonEmpty(all)
		p.Log.Logf("URLs únicas: %d", len(unique))
		p.Resolver.SetInteractive(true)
		for _, u := range unique {
			p.Resolver.PageURL(u)
		}
		p.Resolver.SetInteractive(false)
	}

	apply := func(idx int) []string {
		if idx < 0 {
			return nil
		}
		out := make([]string, len(t.Rows))
		for i := range t.Rows {
			out[i] = p.Resolver.PageURL(t.Cell(i, idx)).Value
		}
		return out
	}
	return apply(firstIdx), apply(lastIdx)
}

// replaceColumns writes the normalized values back over the original
// columns and drops the duplicate/helper columns so the output schema
// matches the input minus redundancy.
func (p *Processor) replaceColumns(t *tabular.Table, institutions, grades, forms, careers, firstPages, lastPages []string) {
	setColumn := func(idx int, values []string) {
		if idx < 0 || values == nil {
			return
		}
		for i := range t.Rows {
			t.SetCell(i, idx, values[i])
		}
	}

	gradeCols := t.ColumnIndices(colGrade)
	if len(gradeCols) > 0 {
		setColumn(gradeCols[0], grades)
	}

	instIdx := t.ColumnIndex(colInstitution)
	inst2Idx := t.ColumnIndex(colInstitution2)
	if instIdx >= 0 {
		setColumn(instIdx, institutions)
	} else if inst2Idx >= 0 {
		// Only the secondary question column exists; keep it as the
		// carrier instead of losing the normalization.
		setColumn(inst2Idx, institutions)
		inst2Idx = -1
	}

	setColumn(t.ColumnIndex(colForm), forms)
	setColumn(t.ColumnIndex(colCareer), careers)
	setColumn(t.ColumnIndex(colFirstPage), firstPages)
	setColumn(t.ColumnIndex(colLastPage), lastPages)

	var drop []int
	if len(gradeCols) > 1 {
		drop = append(drop, gradeCols[1:]...)
	}
	if inst2Idx >= 0 && instIdx >= 0 {
		drop = append(drop, inst2Idx)
	}
	t.DropColumns(drop...)
}

// report writes the end-of-run summary and the audit lists.
func (p *Processor) report(stats Stats) {
	p.Log.Log(strings.Repeat("=", 60))
	p.Log.Log("PROCESO COMPLETADO")
	p.Log.Log(strings.Repeat("=", 60))
	p.Log.Logf("Total de leads procesados: %d", stats.Rows)
	p.Log.Logf("Normalizaciones nuevas: %d", stats.NewClassifications)
	p.Log.Logf("Llamadas al modelo: %d", stats.GatewayCalls)
	p.Log.Logf("Tokens usados: %d", stats.TokensUsed)
	p.Log.Logf("Costo aproximado: $%.4f", stats.EstimatedCost)

	if audit := p.Resolver.Audit(); len(audit) > 0 {
		p.Log.Log("NUEVAS CLASIFICACIONES:")
		for _, line := range audit {
			p.Log.Logf("  • %s", line)
		}
	}
	p.Log.Log("¡Listo para Power BI!")
}

// uniqueNonEmpty returns the distinct non-blank values in first-seen
// order, skipping the Otro placeholder the form cleaner emits.
func uniqueNonEmpty(values []string) []string {
	seen := make(map[string]bool, len(values))
	var out []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || v == lexicon.Other || v == textmatch.Fold(lexicon.Other) {
			continue
		}
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
