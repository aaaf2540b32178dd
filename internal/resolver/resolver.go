// Package resolver implements the four field classification cascades:
// institution names, grade levels, landing-page URLs, and web-form
// identifiers. Each cascade runs the same fallback chain — memoized
// dictionary hit, denylists, curated tables, fuzzy matching, pattern
// heuristics, external model, operator confirmation — and records every
// newly discovered classification in the persistent dictionary.
package resolver

import (
	"fmt"

	"leadnorm/internal/confirm"
	"leadnorm/internal/dictionary"
	"leadnorm/internal/gateway"
	"leadnorm/internal/lexicon"
	"leadnorm/internal/logging"
)

// Method identifies which stage of a cascade produced a classification.
// It feeds the run statistics only; the dictionary stores just the value.
type Method int

const (
	// MethodNone marks a pass-through: no classification was asserted and
	// nothing was written to the dictionary.
	MethodNone Method = iota
	MethodDictionary
	MethodDenylist
	MethodKnown
	MethodFuzzy
	MethodPattern
	MethodGateway
	MethodManual
	MethodDefault
)

// String returns the statistics label for the method.
func (m Method) String() string {
	switch m {
	case MethodDictionary:
		return "diccionario"
	case MethodDenylist:
		return "denylist"
	case MethodKnown:
		return "tabla conocida"
	case MethodFuzzy:
		return "similitud"
	case MethodPattern:
		return "patrón"
	case MethodGateway:
		return "modelo"
	case MethodManual:
		return "manual"
	case MethodDefault:
		return "por defecto"
	}
	return "ninguno"
}

// Result is one resolved classification. An empty Value with MethodNone
// means "leave the field alone" (the form mapper's null outcome).
type Result struct {
	Value  string
	Method Method
}

// Options carries the optional collaborators of a Resolver.
type Options struct {
	// Gateway is the external model fallback. Nil disables it; cascades
	// that would call it return the original value unchanged instead.
	Gateway gateway.Classifier
	// Confirm handles operator prompts. Nil defaults to confirm.Auto.
	Confirm confirm.Confirmer
	// Interactive gates every operator prompt. When false the prompt
	// paths are never entered, regardless of Confirm.
	Interactive bool
	Log         *logging.RunLog
}

// Resolver owns the cascades for one batch run. It is not safe for
// concurrent use; the orchestrator drives it from a single goroutine.
type Resolver struct {
	lex         *lexicon.Lexicon
	dict        *dictionary.Dictionary
	gateway     gateway.Classifier
	confirm     confirm.Confirmer
	interactive bool
	log         *logging.RunLog

	audit []string
}

// New builds a resolver over the given lexicon and dictionary.
func New(lex *lexicon.Lexicon, dict *dictionary.Dictionary, opts Options) *Resolver {
	r := &Resolver{
		lex:         lex,
		dict:        dict,
		gateway:     opts.Gateway,
		confirm:     opts.Confirm,
		interactive: opts.Interactive,
		log:         opts.Log,
	}
	if r.confirm == nil {
		r.confirm = confirm.Auto{}
	}
	if r.log == nil {
		r.log = logging.Discard()
	}
	return r
}

// SetInteractive toggles the operator-prompt paths mid-run. The
// orchestrator runs its identification passes with prompts on and the
// row broadcast passes with prompts off, and uses the toggle to cap
// the number of prompts per run.
func (r *Resolver) SetInteractive(on bool) {
	r.interactive = on
}

// Audit returns the human-readable lines for every classification added
// during the run, in discovery order.
func (r *Resolver) Audit() []string {
	return r.audit
}

// remember persists a newly discovered classification and appends its
// audit line.
func (r *Resolver) remember(cat dictionary.Category, label, raw, value string) {
	r.dict.Put(cat, raw, value)
	line := fmt.Sprintf("%s: %s → %s", label, raw, value)
	r.audit = append(r.audit, line)
	r.log.Logf("  nuevo | %s", line)
}

// rememberTagged is remember with a trailing marker for defaulted
// outcomes (junk input, no rule matched).
func (r *Resolver) rememberTagged(cat dictionary.Category, label, raw, value, tag string) {
	r.dict.Put(cat, raw, value)
	line := fmt.Sprintf("%s: %s → %s (%s)", label, raw, value, tag)
	r.audit = append(r.audit, line)
	r.log.Logf("  nuevo | %s", line)
}
