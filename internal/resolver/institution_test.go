package resolver

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadnorm/internal/confirm"
	"leadnorm/internal/dictionary"
	"leadnorm/internal/gateway"
	"leadnorm/internal/lexicon"
)

type stubGateway struct {
	answer string
	err    error
	calls  int
}

func (s *stubGateway) Classify(ctx context.Context, intent gateway.Intent, text string) (string, error) {
	s.calls++
	return s.answer, s.err
}

func newResolver(t *testing.T, opts Options) (*Resolver, *dictionary.Dictionary) {
	t.Helper()
	dict := dictionary.New()
	return New(lexicon.Default(), dict, opts), dict
}

func TestInstitutionMemoizedHitSkipsEverything(t *testing.T) {
	gw := &stubGateway{answer: "should not be called"}
	r, dict := newResolver(t, Options{Gateway: gw})
	dict.Put(dictionary.Institutions, "USAC", "Universidad de San Carlos de Guatemala (USAC)")

	for i := 0; i < 2; i++ {
		got := r.Institution(context.Background(), "USAC")
		assert.Equal(t, "Universidad de San Carlos de Guatemala (USAC)", got.Value)
		assert.Equal(t, MethodDictionary, got.Method)
	}
	assert.Zero(t, gw.calls)
	assert.Empty(t, r.Audit())
}

func TestInstitutionInvalidResponses(t *testing.T) {
	r, dict := newResolver(t, Options{})
	cases := []string{
		"no estudio",
		"Ya me gradué hace años", // phrase containment
		"a",                      // too short
		"N/A",
		"Perito en mercadotecnia",
		"Licenciatura en derecho",
		"Instituto Guatemalteco de Seguridad Social",
	}
	for _, raw := range cases {
		got := r.Institution(context.Background(), raw)
		if got.Value != lexicon.Other {
			t.Errorf("Institution(%q) = %q, want %q", raw, got.Value, lexicon.Other)
		}
		assert.Equal(t, MethodDenylist, got.Method)
	}
	assert.Equal(t, len(cases), dict.Len(dictionary.Institutions))
}

func TestInstitutionKnownTables(t *testing.T) {
	r, _ := newResolver(t, Options{})

	got := r.Institution(context.Background(), "LICEO JAVIER")
	assert.Equal(t, "Liceo Javier", got.Value)
	assert.Equal(t, MethodKnown, got.Method)

	got = r.Institution(context.Background(), "usac")
	assert.Equal(t, "Universidad de San Carlos de Guatemala (USAC)", got.Value)

	// Substring match in either direction.
	got = r.Institution(context.Background(), "Universidad Mariano Gálvez de Guatemala")
	assert.Equal(t, "Universidad Mariano Gálvez", got.Value)

	// Fuzzy match against the university table.
	got = r.Institution(context.Background(), "univercidad galileo")
	assert.Equal(t, "Universidad Galileo", got.Value)
}

func TestInstitutionOverrideBeatsUniversity(t *testing.T) {
	r, dict := newResolver(t, Options{})

	got := r.Institution(context.Background(), "Instituto Rafael Landívar")
	assert.Equal(t, "Instituto Rafael Landívar", got.Value)
	assert.NotEqual(t, "Universidad Rafael Landívar", got.Value)

	stored, ok := dict.Get(dictionary.Institutions, "Instituto Rafael Landívar")
	require.True(t, ok)
	assert.Equal(t, "Instituto Rafael Landívar", stored)
}

func TestInstitutionNonUniversitySuppressesUniversityMatch(t *testing.T) {
	r, _ := newResolver(t, Options{})

	// "valle colonial" contains "valle" but must never resolve to the
	// Universidad del Valle entry.
	got := r.Institution(context.Background(), "Valle Colonial")
	assert.NotEqual(t, "Universidad del Valle de Guatemala", got.Value)
}

func TestInstitutionDenylistBeatsFuzzy(t *testing.T) {
	r, dict := newResolver(t, Options{})
	dict.Put(dictionary.Institutions, "no estudia", "Colegio Fantasma")

	got := r.Institution(context.Background(), "no estudio")
	assert.Equal(t, lexicon.Other, got.Value)
	assert.Equal(t, MethodDenylist, got.Method)
}

func TestInstitutionFuzzyDictionaryBoundary(t *testing.T) {
	base := strings.Repeat("vwxyz", 20)
	mutate := func(k int) string {
		return strings.Repeat("#", k) + base[k:]
	}

	for _, tc := range []struct {
		k     int
		match bool
	}{
		{11, true},  // score 89
		{12, true},  // score 88, inclusive boundary
		{13, false}, // score 87
	} {
		r, dict := newResolver(t, Options{})
		dict.Put(dictionary.Institutions, base, "Colegio Canónico")

		got := r.Institution(context.Background(), mutate(tc.k))
		if tc.match {
			assert.Equal(t, "Colegio Canónico", got.Value, "k=%d", tc.k)
			assert.Equal(t, MethodFuzzy, got.Method)
			// Fuzzy reuse must not mint a new dictionary entry.
			assert.Equal(t, 1, dict.Len(dictionary.Institutions))
		} else {
			assert.Equal(t, MethodNone, got.Method, "k=%d", tc.k)
			assert.Equal(t, 1, dict.Len(dictionary.Institutions))
		}
	}
}

func TestInstitutionAmbiguousAcronymNonInteractive(t *testing.T) {
	r, dict := newResolver(t, Options{Gateway: &stubGateway{answer: "nope"}})

	got := r.Institution(context.Background(), "igs")
	assert.Equal(t, "igs", got.Value)
	assert.Equal(t, MethodNone, got.Method)
	assert.Zero(t, dict.Len(dictionary.Institutions))
}

func TestInstitutionShortStringNeedsWhitelist(t *testing.T) {
	r, _ := newResolver(t, Options{})

	// Whitelisted acronyms resolve through the university table.
	got := r.Institution(context.Background(), "uvg")
	assert.Equal(t, "Universidad del Valle de Guatemala", got.Value)

	// Unknown three-letter strings are ambiguous, not universities.
	got = r.Institution(context.Background(), "abc")
	assert.Equal(t, "abc", got.Value)
	assert.Equal(t, MethodNone, got.Method)
}

func TestInstitutionAmbiguousAcronymInteractive(t *testing.T) {
	script := &confirm.Scripted{Answers: []string{"Instituto IGS"}}
	r, dict := newResolver(t, Options{Confirm: script, Interactive: true})

	got := r.Institution(context.Background(), "igs")
	assert.Equal(t, "Instituto IGS", got.Value)
	assert.Equal(t, MethodManual, got.Method)

	stored, ok := dict.Get(dictionary.Institutions, "igs")
	require.True(t, ok)
	assert.Equal(t, "Instituto IGS", stored)
	assert.Equal(t, []string{"igs"}, script.Asked)
}

func TestInstitutionGatewayFallback(t *testing.T) {
	gw := &stubGateway{answer: "Colegio La Patria"}
	r, dict := newResolver(t, Options{Gateway: gw})

	got := r.Institution(context.Background(), "la patria zona 1")
	assert.Equal(t, "Colegio La Patria", got.Value)
	assert.Equal(t, MethodGateway, got.Method)
	assert.Equal(t, 1, gw.calls)

	stored, ok := dict.Get(dictionary.Institutions, "la patria zona 1")
	require.True(t, ok)
	assert.Equal(t, "Colegio La Patria", stored)
}

func TestInstitutionGatewayFailureKeepsOriginal(t *testing.T) {
	gw := &stubGateway{err: errors.New("timeout")}
	r, dict := newResolver(t, Options{Gateway: gw})

	got := r.Institution(context.Background(), "colegio desconocido zona 7")
	assert.Equal(t, "colegio desconocido zona 7", got.Value)
	assert.Equal(t, MethodNone, got.Method)
	// Not memoized, so the next run can retry with a working gateway.
	assert.Zero(t, dict.Len(dictionary.Institutions))
}

func TestInstitutionGatewayProposalConfirmed(t *testing.T) {
	gw := &stubGateway{answer: "Colegio Shalom"}
	script := &confirm.Scripted{Answers: []string{"Colegio Shalom Cristiano"}}
	r, dict := newResolver(t, Options{Gateway: gw, Confirm: script, Interactive: true})

	got := r.Institution(context.Background(), "shalom")
	assert.Equal(t, "Colegio Shalom Cristiano", got.Value)
	assert.Equal(t, MethodManual, got.Method)

	stored, _ := dict.Get(dictionary.Institutions, "shalom")
	assert.Equal(t, "Colegio Shalom Cristiano", stored)
}

// cancelling aborts every prompt, as a closed stdin would.
type cancelling struct{}

func (cancelling) Confirm(kind, original, proposed string) (string, error) {
	return "", confirm.ErrCancelled
}

func (cancelling) Choose(kind, value string, options []string) (string, error) {
	return "", confirm.ErrCancelled
}

func TestInstitutionGatewayProposalCancelledKeepsOriginal(t *testing.T) {
	gw := &stubGateway{answer: "Colegio Shalom"}
	r, dict := newResolver(t, Options{Gateway: gw, Confirm: cancelling{}, Interactive: true})

	got := r.Institution(context.Background(), "shalom")
	assert.Equal(t, "shalom", got.Value)
	assert.Equal(t, MethodNone, got.Method)
	// Not memoized, so a later interactive run can vet the proposal again.
	assert.Zero(t, dict.Len(dictionary.Institutions))
}

func TestInstitutionAuditLines(t *testing.T) {
	r, _ := newResolver(t, Options{})
	r.Institution(context.Background(), "no estudio")
	r.Institution(context.Background(), "usac")

	require.Len(t, r.Audit(), 2)
	assert.Contains(t, r.Audit()[0], "no estudio")
	assert.Contains(t, r.Audit()[0], lexicon.Other)
	assert.Contains(t, r.Audit()[1], "Universidad de San Carlos")
}
