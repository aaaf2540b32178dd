package resolver

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"leadnorm/internal/dictionary"
	"leadnorm/internal/lexicon"
	"leadnorm/internal/textmatch"
)

var (
	// ordinalRE catches suffixed grade numbers: "4to", "5 to.", "1er", "3ro".
	ordinalRE = regexp.MustCompile(`\b([1-7])\s*(?:ro|do|to|mo|er|vo)\b\.?`)
	// bareDigitRE catches a lone grade number used as a whole word.
	bareDigitRE = regexp.MustCompile(`\b([1-7])\b`)
	// codeRE is the "ABC123" test-value shape.
	codeRE = regexp.MustCompile(`^[a-z]{2,}[0-9]{2,}$`)
	// digitsRE matches pure digit strings.
	digitsRE = regexp.MustCompile(`^[0-9]+$`)
)

// Grade resolves a raw grade string to one of the canonical grade
// labels. Unresolved and junk input deliberately defaults to the most
// common real-world label, 5to. Diversificado, never to a sentinel.
func (r *Resolver) Grade(raw string) Result {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return r.gradeManual("")
	}

	if stored, ok := r.dict.Get(dictionary.Grades, raw); ok {
		return Result{stored, MethodDictionary}
	}

	norm := textmatch.Normalize(raw)

	if containsAny(norm, r.lex.GraduatedKeywords) {
		value := lexicon.GradeGraduatedDiver
		if containsAny(norm, r.lex.UniversityKeywords) {
			value = lexicon.GradeGraduatedUniv
		}
		r.remember(dictionary.Grades, "Grado", raw, value)
		return Result{value, MethodKnown}
	}

	if containsAny(norm, r.lex.UniversityKeywords) {
		r.remember(dictionary.Grades, "Grado", raw, lexicon.GradeUniversity)
		return Result{lexicon.GradeUniversity, MethodKnown}
	}

	if n, ok := extractGradeNumber(norm, r.lex.NumberWords); ok {
		if n <= 3 && !containsAny(norm, r.lex.BasicKeywords) && r.interactive {
			return r.gradeManual(raw)
		}
		cycle := "Básico"
		if n >= 4 {
			cycle = "Diversificado"
		}
		value := lexicon.OrdinalLabel(n) + " " + cycle
		r.remember(dictionary.Grades, "Grado", raw, value)
		return Result{value, MethodPattern}
	}

	if containsAny(norm, r.lex.DiversifiedKeywords) {
		r.remember(dictionary.Grades, "Grado", raw, lexicon.GradeDefaultDiversified)
		return Result{lexicon.GradeDefaultDiversified, MethodPattern}
	}

	if r.isJunkGrade(norm) {
		r.rememberTagged(dictionary.Grades, "Grado", raw, lexicon.GradeDefaultDiversified, "basura")
		return Result{lexicon.GradeDefaultDiversified, MethodDefault}
	}

	r.rememberTagged(dictionary.Grades, "Grado", raw, lexicon.GradeDefaultDiversified, "sin regla")
	return Result{lexicon.GradeDefaultDiversified, MethodDefault}
}

// gradeManual asks the operator to pick a grade from the canonical menu.
// Outside interactive mode, and on a cancelled prompt, the answer is the
// Sin especificar sentinel. Blank input is never memoized.
func (r *Resolver) gradeManual(raw string) Result {
	if !r.interactive {
		if raw != "" {
			r.remember(dictionary.Grades, "Grado", raw, lexicon.Unspecified)
		}
		return Result{lexicon.Unspecified, MethodDefault}
	}
	answer, err := r.confirm.Choose("grado", raw, r.lex.GradeOptions)
	if err != nil {
		answer = lexicon.Unspecified
	}
	if raw != "" {
		r.remember(dictionary.Grades, "Grado", raw, answer)
	}
	return Result{answer, MethodManual}
}

// extractGradeNumber pulls a grade number 1-7 out of the normalized
// string: ordinal suffix first, then spelled-out ordinal words, then a
// bare whole-word digit.
func extractGradeNumber(norm string, words map[string]int) (int, bool) {
	if m := ordinalRE.FindStringSubmatch(norm); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n, true
	}
	for _, tok := range strings.Fields(norm) {
		if n, ok := words[tok]; ok {
			return n, true
		}
	}
	if m := bareDigitRE.FindStringSubmatch(norm); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n, true
	}
	return 0, false
}

// isJunkGrade flags keyboard noise and test values: repeated-character
// runs, "abc123" codes, overlong digit strings, pure punctuation, and
// the explicit junk-token list.
func (r *Resolver) isJunkGrade(norm string) bool {
	compact := strings.ReplaceAll(norm, " ", "")
	if compact == "" {
		return false
	}
	if len([]rune(compact)) >= 3 && distinctRunes(compact) <= 2 {
		return true
	}
	if codeRE.MatchString(compact) {
		return true
	}
	if digitsRE.MatchString(compact) && len(compact) > 4 {
		return true
	}
	if !strings.ContainsFunc(compact, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}) {
		return true
	}
	return containsAny(norm, r.lex.JunkTokens)
}

func distinctRunes(s string) int {
	seen := make(map[rune]bool)
	for _, r := range s {
		seen[r] = true
	}
	return len(seen)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
