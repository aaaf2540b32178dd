package resolver

import (
	"context"
	"strings"

	"leadnorm/internal/dictionary"
	"leadnorm/internal/gateway"
	"leadnorm/internal/lexicon"
	"leadnorm/internal/textmatch"
)

// Fuzzy thresholds on the 0-100 similarity scale. Dictionary reuse is
// inclusive at 88; university matching is exclusive at 75.
const (
	dictFuzzyThreshold = 88.0
	univFuzzyThreshold = 75.0
)

// Institution resolves a raw institution string to its canonical display
// name, or the "Otro" sentinel for invalid answers and non-institutions.
// Every outcome except a memoized hit and a disabled ambiguous-acronym
// pass-through is written to the dictionary under the raw key.
func (r *Resolver) Institution(ctx context.Context, raw string) Result {
	raw = strings.TrimSpace(raw)

	if stored, ok := r.dict.Get(dictionary.Institutions, raw); ok {
		return Result{stored, MethodDictionary}
	}

	folded := textmatch.Fold(raw)

	if r.isInvalidResponse(folded) || r.isAcademicTitle(folded) || r.isNonInstitution(folded) {
		r.remember(dictionary.Institutions, "Institución", raw, lexicon.Other)
		return Result{lexicon.Other, MethodDenylist}
	}

	if canon, ok := r.lex.KnownInstitutions[folded]; ok {
		r.remember(dictionary.Institutions, "Institución", raw, canon)
		return Result{canon, MethodKnown}
	}

	// Institutions whose names overlap a university's must win before any
	// university matching runs.
	for _, spec := range r.lex.SpecificInstitutions {
		if strings.Contains(folded, spec.Fragment) {
			r.remember(dictionary.Institutions, "Institución", raw, spec.Canonical)
			return Result{spec.Canonical, MethodKnown}
		}
	}

	if !r.lex.NonUniversity[folded] {
		if canon, ok := r.matchUniversity(folded); ok {
			r.remember(dictionary.Institutions, "Institución", raw, canon)
			return Result{canon, MethodKnown}
		}
	}

	if stored, ok := r.fuzzyDictionary(raw); ok {
		return Result{stored, MethodFuzzy}
	}

	if r.isAmbiguousAcronym(folded) {
		if !r.interactive {
			return Result{raw, MethodNone}
		}
		answer, err := r.confirm.Confirm("institución", raw, raw)
		if err != nil {
			answer = raw
		}
		r.remember(dictionary.Institutions, "Institución", raw, answer)
		return Result{answer, MethodManual}
	}

	return r.institutionGateway(ctx, raw)
}

// isInvalidResponse covers strings too short to name anything plus the
// invalid-answer phrase lists.
func (r *Resolver) isInvalidResponse(folded string) bool {
	if len([]rune(folded)) < 2 {
		return true
	}
	if r.lex.InvalidResponses[folded] {
		return true
	}
	for _, phrase := range r.lex.InvalidPhrases {
		if strings.Contains(folded, phrase) {
			return true
		}
	}
	return false
}

func (r *Resolver) isAcademicTitle(folded string) bool {
	for _, title := range r.lex.AcademicTitles {
		if strings.Contains(folded, title) {
			return true
		}
	}
	return false
}

func (r *Resolver) isNonInstitution(folded string) bool {
	for _, entity := range r.lex.NonInstitutions {
		if strings.Contains(folded, entity) {
			return true
		}
	}
	return false
}

// matchUniversity tries exact, then substring, then fuzzy matching
// against the university table. Substring and fuzzy matching only apply
// to inputs of four runes or more so short acronyms fall through to the
// ambiguous-acronym step instead of merging into a university by noise.
func (r *Resolver) matchUniversity(folded string) (string, bool) {
	if canon, ok := r.lex.Universities[folded]; ok {
		return canon, true
	}
	if len([]rune(folded)) < 4 {
		return "", false
	}
	for key, canon := range r.lex.Universities {
		if len(key) < 4 {
			continue
		}
		if strings.Contains(folded, key) || strings.Contains(key, folded) {
			return canon, true
		}
	}
	var best string
	bestScore := univFuzzyThreshold
	for key, canon := range r.lex.Universities {
		if score := textmatch.Ratio(folded, key); score > bestScore {
			bestScore = score
			best = canon
		}
	}
	return best, best != ""
}

// fuzzyDictionary reuses an earlier run's classification when the raw
// string is nearly identical to an already memoized key. The match is
// returned without creating a new entry, so minor misspellings of the
// same institution collapse onto one dictionary row.
func (r *Resolver) fuzzyDictionary(raw string) (string, bool) {
	norm := textmatch.Normalize(raw)
	var bestKey string
	bestScore := dictFuzzyThreshold
	for _, key := range r.dict.Keys(dictionary.Institutions) {
		score := textmatch.Ratio(norm, textmatch.Normalize(key))
		if score >= bestScore {
			bestScore = score
			bestKey = key
		}
	}
	if bestKey == "" {
		return "", false
	}
	stored, _ := r.dict.Get(dictionary.Institutions, bestKey)
	return stored, true
}

func (r *Resolver) isAmbiguousAcronym(folded string) bool {
	if r.lex.AmbiguousAcronyms[folded] {
		return true
	}
	return len([]rune(folded)) <= 3 && !r.lex.AcronymWhitelist[folded]
}

// institutionGateway is the last resort: ask the external model, let the
// operator vet its proposal when interactive, and persist the outcome.
// A gateway failure (or no gateway at all) returns the original string
// unchanged and leaves the dictionary alone so a later run can retry;
// a cancelled confirmation does the same.
func (r *Resolver) institutionGateway(ctx context.Context, raw string) Result {
	if r.gateway == nil {
		return Result{raw, MethodNone}
	}
	proposed, err := r.gateway.Classify(ctx, gateway.IntentInstitution, raw)
	if err != nil {
		r.log.Logf("  modelo no disponible para %q: %v", raw, err)
		return Result{raw, MethodNone}
	}
	value := proposed
	method := MethodGateway
	if r.interactive {
		answer, err := r.confirm.Confirm("institución", raw, proposed)
		if err != nil {
			r.log.Logf("  confirmación cancelada para %q, se mantiene el valor original", raw)
			return Result{raw, MethodNone}
		}
		if answer != proposed {
			method = MethodManual
		}
		value = answer
	}
	r.remember(dictionary.Institutions, "Institución", raw, value)
	return Result{value, method}
}
