// Package usage accounts for gateway token consumption during one batch run.
package usage

import "sync"

// TokenCounts holds input/output sums.
type TokenCounts struct {
	Input  int64
	Output int64
	Total  int64
}

// Tracker accumulates token usage across gateway calls. Usage is in-memory
// only: the run report is the single consumer.
type Tracker struct {
	mu      sync.Mutex
	calls   int64
	byModel map[string]TokenCounts
	total   TokenCounts
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{byModel: make(map[string]TokenCounts)}
}

// Track records one gateway call.
func (t *Tracker) Track(model string, input, output int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.calls++
	t.total.Input += int64(input)
	t.total.Output += int64(output)
	t.total.Total += int64(input + output)

	counts := t.byModel[model]
	counts.Input += int64(input)
	counts.Output += int64(output)
	counts.Total += int64(input + output)
	t.byModel[model] = counts
}

// Calls returns the number of tracked gateway calls.
func (t *Tracker) Calls() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

// Tokens returns the combined token total.
func (t *Tracker) Tokens() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total.Total
}

// ByModel returns a copy of the per-model breakdown.
func (t *Tracker) ByModel() map[string]TokenCounts {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]TokenCounts, len(t.byModel))
	for k, v := range t.byModel {
		out[k] = v
	}
	return out
}

// Cost estimates the monetary cost at the given rate per million tokens.
func (t *Tracker) Cost(perMillion float64) float64 {
	return float64(t.Tokens()) / 1_000_000 * perMillion
}
