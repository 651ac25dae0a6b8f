package fallback

import (
	"testing"
	"time"
)

func TestRateLimitSignal(t *testing.T) {
	s := NewRateLimitSignal()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	if s.IsCoolingDown() || s.SecondsRemaining() != 0 {
		t.Fatal("fresh signal must not report a cooldown")
	}

	s.Record(30 * time.Second)
	if !s.IsCoolingDown() {
		t.Fatal("expected cooldown after record")
	}
	if got := s.SecondsRemaining(); got != 30 {
		t.Fatalf("seconds remaining = %d, want 30", got)
	}
	if s.ConsecutiveFailures() != 1 {
		t.Fatalf("consecutive failures = %d, want 1", s.ConsecutiveFailures())
	}

	// Last writer wins on the reset time.
	s.Record(10 * time.Second)
	if got := s.SecondsRemaining(); got != 10 {
		t.Fatalf("seconds remaining = %d, want 10", got)
	}

	// The cooldown elapses on its own.
	now = now.Add(11 * time.Second)
	if s.IsCoolingDown() || s.SecondsRemaining() != 0 {
		t.Fatal("cooldown should have elapsed")
	}

	s.Reset()
	if s.ConsecutiveFailures() != 0 {
		t.Fatal("reset must clear the failure counter")
	}
}
