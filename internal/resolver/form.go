package resolver

import (
	"strings"

	"leadnorm/internal/dictionary"
	"leadnorm/internal/lexicon"
	"leadnorm/internal/textmatch"
)

// CleanFormID reduces a raw form-submission value to one meaningful
// identifier. The raw value may hold several semicolon or comma
// separated tokens, some of which are just the UI widget placeholder;
// the first token that survives placeholder stripping wins, lowercased
// and accent-folded. A value made only of placeholders becomes Otro.
func CleanFormID(raw string, lex *lexicon.Lexicon) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	for _, token := range strings.FieldsFunc(raw, func(r rune) bool {
		return r == ';' || r == ','
	}) {
		t := textmatch.Normalize(token)
		t = strings.ReplaceAll(t, lex.FormPlaceholder, "")
		t = strings.Trim(t, " .;,")
		if t != "" {
			return t
		}
	}
	return textmatch.Fold(lexicon.Other)
}

// FormProgram maps a cleaned form identifier to a declared program. An
// empty Value means no program is asserted and the record's existing
// program field is left untouched; that outcome is distinct from Otro.
func (r *Resolver) FormProgram(id string) Result {
	key := textmatch.Fold(id)
	if key == "" || key == textmatch.Fold(lexicon.Other) {
		return Result{"", MethodNone}
	}

	if stored, ok := r.dict.Get(dictionary.Forms, key); ok {
		return Result{stored, MethodDictionary}
	}

	for _, m := range r.lex.FormPrograms {
		if strings.Contains(key, m.Fragment) {
			r.remember(dictionary.Forms, "Formulario", key, m.Program)
			return Result{m.Program, MethodPattern}
		}
	}

	// The partner portal supplies its own program; never guess for it.
	for _, marker := range r.lex.PartnerMarkers {
		if strings.Contains(key, marker) {
			return Result{"", MethodNone}
		}
	}

	if r.interactive {
		options := append(append([]string{}, r.lex.Programs...), lexicon.Unspecified)
		answer, err := r.confirm.Choose("formulario", key, options)
		if err == nil {
			r.remember(dictionary.Forms, "Formulario", key, answer)
			return Result{answer, MethodManual}
		}
	}

	return Result{"", MethodNone}
}
