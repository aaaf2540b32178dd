package usage

import (
	"math"
	"testing"
)

func TestTrackerAggregates(t *testing.T) {
	tr := NewTracker()
	tr.Track("claude-sonnet-4-20250514", 100, 50)
	tr.Track("claude-sonnet-4-20250514", 10, 5)
	tr.Track("gemini-2.0-flash", 30, 20)

	if got := tr.Calls(); got != 3 {
		t.Fatalf("Calls = %d, want 3", got)
	}
	if got := tr.Tokens(); got != 215 {
		t.Fatalf("Tokens = %d, want 215", got)
	}

	byModel := tr.ByModel()
	if got := byModel["claude-sonnet-4-20250514"]; got.Input != 110 || got.Output != 55 {
		t.Fatalf("claude counts = %+v", got)
	}
	if got := byModel["gemini-2.0-flash"]; got.Total != 50 {
		t.Fatalf("gemini total = %d, want 50", got.Total)
	}
}

func TestTrackerCost(t *testing.T) {
	tr := NewTracker()
	tr.Track("m", 500_000, 500_000)

	if got := tr.Cost(3.0); math.Abs(got-3.0) > 1e-9 {
		t.Fatalf("Cost = %v, want 3.0", got)
	}
	if got := NewTracker().Cost(3.0); got != 0 {
		t.Fatalf("empty Cost = %v, want 0", got)
	}
}
