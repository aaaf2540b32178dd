// Package textmatch provides the string normalization and similarity scoring
// shared by every field matcher. Scores are on a 0-100 scale, matching the
// ratio semantics the classification thresholds were tuned against.
package textmatch

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var accentStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lowercases s, strips diacritics and trims surrounding whitespace.
// "Landívar" and "landivar" fold to the same key.
func Fold(s string) string {
	folded, _, err := transform.String(accentStripper, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}

// Normalize prepares free-text field values for keyword matching: folded,
// underscores treated as spaces, internal whitespace collapsed.
func Normalize(s string) string {
	s = Fold(strings.ReplaceAll(s, "_", " "))
	return strings.Join(strings.Fields(s), " ")
}

// Ratio computes a normalized indel similarity between a and b on a 0-100
// scale. It is the length-weighted complement of the insert/delete edit
// distance (substitutions cost 2), which is what the dictionary and
// university thresholds are calibrated for. Two empty strings score 100.
func Ratio(a, b string) float64 {
	ra := []rune(a)
	rb := []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 100
	}
	dist := indelDistance(ra, rb)
	return 100 * (1 - float64(dist)/float64(total))
}

// indelDistance is the minimum number of insertions and deletions turning a
// into b, computed as len(a)+len(b)-2*LCS(a,b) with a two-row DP.
func indelDistance(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		curr[0] = 0
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	lcs := prev[len(b)]
	return len(a) + len(b) - 2*lcs
}
