package fallback

import (
	"sync"
	"time"
)

// RateLimitSignal records the most recent upstream rate-limit event and its
// computed reset time. Purely advisory: the executor records into it, and
// external callers use it as the single source of truth for "should I retry
// now" decisions. Safe for concurrent use; last writer wins on the reset
// time.
type RateLimitSignal struct {
	mu                  sync.Mutex
	resetAt             time.Time
	consecutiveFailures int

	now func() time.Time
}

// NewRateLimitSignal creates an empty signal.
func NewRateLimitSignal() *RateLimitSignal {
	return &RateLimitSignal{now: time.Now}
}

// Record notes an upstream rate-limit event with the given retry hint.
func (s *RateLimitSignal) Record(retryAfter time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.resetAt = s.now().Add(retryAfter)
	s.consecutiveFailures++
}

// Reset clears the signal, typically after a successful upstream call.
func (s *RateLimitSignal) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.resetAt = time.Time{}
	s.consecutiveFailures = 0
}

// IsCoolingDown reports whether the recorded reset time is still in the
// future.
func (s *RateLimitSignal) IsCoolingDown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.resetAt.After(s.now())
}

// SecondsRemaining returns whole seconds until the reset time, 0 when the
// cooldown has elapsed or none was recorded.
func (s *RateLimitSignal) SecondsRemaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	left := s.resetAt.Sub(s.now())
	if left <= 0 {
		return 0
	}
	secs := int(left / time.Second)
	if left%time.Second != 0 {
		secs++
	}
	return secs
}

// ConsecutiveFailures returns the number of rate-limit events recorded since
// the last reset.
func (s *RateLimitSignal) ConsecutiveFailures() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.consecutiveFailures
}
