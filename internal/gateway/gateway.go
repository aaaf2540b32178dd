// Package gateway wraps the external generative-language service used as the
// last-resort classifier for free-text institution and grade values. Local
// rules always run first; the gateway only sees what they could not resolve.
//
// Providers implement Classifier. A transport failure surfaces as an error so
// the caller can fall back to the original raw input unchanged; a response
// that looks like machine chatter rather than an answer is coerced to "Otro"
// before the caller ever sees it.
package gateway

import (
	"context"
	"fmt"
	"strings"

	"leadnorm/internal/lexicon"
	"leadnorm/internal/textmatch"
)

// Intent selects the classification task sent to the model.
type Intent string

const (
	IntentInstitution Intent = "institution"
	IntentGrade       Intent = "grade"
)

// Classifier is the external classification capability.
type Classifier interface {
	Classify(ctx context.Context, intent Intent, text string) (string, error)
}

// maxAnswerRunes is the length ceiling beyond which a response is treated as
// an explanation, not an answer.
const maxAnswerRunes = 150

// fillerPhrases mark responses where the model asked for context instead of
// answering.
var fillerPhrases = []string{
	"estoy listo para",
	"por favor proporciona",
	"entendido",
	"necesito mas informacion",
	"no puedo",
	"dame mas contexto",
}

// schoolMarkers are words that open school names; a school must never come
// back renamed as a university.
var schoolMarkers = []string{"colegio", "instituto", "liceo", "escuela"}

// prompt builds the per-intent instruction for the model.
func prompt(intent Intent, text string) string {
	switch intent {
	case IntentGrade:
		return fmt.Sprintf(`Grado académico: %q

REGLAS:
- 1ro. Básico, 2do. Básico, 3ro. Básico
- 4to. Diversificado, 5to. Diversificado, 6to. Diversificado
- Estudiante Universitario
- Graduado Diversificado

SOLO el grado normalizado.`, text)
	default:
		return fmt.Sprintf(`Nombre de institución: %q

REGLAS:
1. Si NO estudia → "Otro"
2. Si es UNIVERSIDAD → Nombre oficial
3. Si es COLEGIO → Nombre limpio
4. Si es ambiguo → nombre original

SOLO el nombre normalizado, sin explicaciones.`, text)
	}
}

// sanitize validates a model response against the "machine explanation, not
// an answer" filter and the school/university coercion rule.
func sanitize(intent Intent, original, answer string) string {
	answer = strings.TrimSpace(answer)

	if len([]rune(answer)) > maxAnswerRunes {
		return lexicon.Other
	}
	folded := textmatch.Fold(answer)
	for _, phrase := range fillerPhrases {
		if strings.Contains(folded, phrase) {
			return lexicon.Other
		}
	}
	if strings.Count(answer, "\n") > 2 {
		return lexicon.Other
	}

	if intent == IntentInstitution {
		foldedOriginal := textmatch.Fold(original)
		for _, marker := range schoolMarkers {
			if strings.HasPrefix(foldedOriginal, marker+" ") && strings.Contains(folded, "universidad") {
				return cleanOriginal(original)
			}
		}
	}
	return answer
}

// cleanOriginal returns the raw string trimmed and with internal whitespace
// collapsed, preserving the writer's casing.
func cleanOriginal(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}
