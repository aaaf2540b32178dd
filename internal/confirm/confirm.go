// Package confirm abstracts the operator confirmation protocol so the
// classification cascades never touch a terminal directly. The terminal
// implementation blocks on stdin; Auto is used for non-interactive runs;
// Scripted serves tests.
package confirm

import "errors"

// ErrCancelled reports that the operator aborted a prompt (EOF/interrupt).
// Callers degrade to their cascade's fallback value instead of failing the
// batch.
var ErrCancelled = errors.New("confirmation cancelled")

// ErrUnavailable reports that no operator is present to answer a menu.
var ErrUnavailable = errors.New("no interactive confirmer available")

// Confirmer is the operator-confirmation capability injected into the
// resolvers.
type Confirmer interface {
	// Confirm presents original and proposed values for a field kind and
	// returns the final value: the proposal, a manually entered override, or
	// the forced "Otro" sentinel.
	Confirm(kind, original, proposed string) (string, error)

	// Choose presents a fixed numbered menu for value and returns the chosen
	// option. Invalid input re-prompts; it never defaults silently.
	Choose(kind, value string, options []string) (string, error)
}

// Auto is the non-interactive implementation: proposals are accepted as-is
// and menus are unavailable.
type Auto struct{}

func (Auto) Confirm(kind, original, proposed string) (string, error) {
	return proposed, nil
}

func (Auto) Choose(kind, value string, options []string) (string, error) {
	return "", ErrUnavailable
}

// Scripted replays queued answers, for tests. Confirm and Choose both pop
// the next answer; an exhausted script behaves like Auto.
type Scripted struct {
	Answers []string
	// Asked records every prompt value presented, in order.
	Asked []string
}

func (s *Scripted) pop() (string, bool) {
	if len(s.Answers) == 0 {
		return "", false
	}
	answer := s.Answers[0]
	s.Answers = s.Answers[1:]
	return answer, true
}

func (s *Scripted) Confirm(kind, original, proposed string) (string, error) {
	s.Asked = append(s.Asked, original)
	if answer, ok := s.pop(); ok {
		return answer, nil
	}
	return proposed, nil
}

func (s *Scripted) Choose(kind, value string, options []string) (string, error) {
	s.Asked = append(s.Asked, value)
	if answer, ok := s.pop(); ok {
		return answer, nil
	}
	return "", ErrUnavailable
}
