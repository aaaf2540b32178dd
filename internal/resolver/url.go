package resolver

import (
	"net/url"
	"strings"

	"leadnorm/internal/dictionary"
	"leadnorm/internal/lexicon"
)

// PageURL maps a landing-page URL to a program label, the Bridge
// Principal label for the bare intake domain, or Otro. Only discovered
// classifications are memoized: pattern hits and operator answers
// persist, while the always-Otro policy list, the root-domain check, and
// the final Otro fallthrough are recomputed every run.
func (r *Resolver) PageURL(raw string) Result {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return Result{lexicon.Other, MethodNone}
	}

	if stored, ok := r.dict.Get(dictionary.URLs, key); ok {
		return Result{stored, MethodDictionary}
	}

	// Percent-encoded URLs ("lic%2Badministracion") must classify the
	// same as their decoded form, so every test runs on both.
	decoded := key
	if d, err := url.QueryUnescape(key); err == nil {
		decoded = strings.ToLower(d)
	}

	for _, pattern := range r.lex.URLAlwaysOther {
		if strings.Contains(key, pattern) || strings.Contains(decoded, pattern) {
			return Result{lexicon.Other, MethodDenylist}
		}
	}

	for _, prog := range r.lex.URLPrograms {
		for _, pattern := range prog.Patterns {
			if strings.Contains(key, pattern) || strings.Contains(decoded, pattern) {
				r.remember(dictionary.URLs, "URL", key, prog.Program)
				return Result{prog.Program, MethodPattern}
			}
		}
	}

	if r.lex.BridgeRootRE.MatchString(key) || r.lex.BridgeRootRE.MatchString(decoded) {
		return Result{lexicon.BridgePrincipal, MethodPattern}
	}

	if r.interactive && strings.Contains(key, r.lex.BridgeDomain) {
		options := append(append([]string{}, r.lex.Programs...), lexicon.BridgePrincipal, lexicon.Other)
		answer, err := r.confirm.Choose("URL", key, options)
		if err == nil {
			r.remember(dictionary.URLs, "URL", key, answer)
			return Result{answer, MethodManual}
		}
	}

	return Result{lexicon.Other, MethodDefault}
}
