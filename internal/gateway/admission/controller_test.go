package admission

import (
	"testing"
	"time"
)

func newTestController(rule Rule) (*Controller, *time.Time) {
	c := NewController(rule, 300*time.Second)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestBurstViolationBansClient(t *testing.T) {
	c, now := newTestController(Rule{BurstLimit: 3, RequestsPerMinute: 20, RequestsPerHour: 100})

	for i := 0; i < 3; i++ {
		d := c.Check("1.2.3.4", "/v1/ask")
		if !d.Allowed {
			t.Fatalf("request %d: expected allowed, got %q", i+1, d.Reason)
		}
		if want := 2 - i; d.Remaining.Burst != want {
			t.Fatalf("request %d: remaining burst = %d, want %d", i+1, d.Remaining.Burst, want)
		}
	}

	d := c.Check("1.2.3.4", "/v1/ask")
	if d.Allowed || d.Reason != ReasonBurstLimit {
		t.Fatalf("expected burst_limit denial, got allowed=%v reason=%q", d.Allowed, d.Reason)
	}
	if d.RetryAfterSeconds != 10 {
		t.Fatalf("retry after = %d, want 10", d.RetryAfterSeconds)
	}

	// The ban outlives the burst window.
	*now = now.Add(1 * time.Second)
	d = c.Check("1.2.3.4", "/v1/ask")
	if d.Allowed || d.Reason != ReasonBanned {
		t.Fatalf("expected banned denial, got allowed=%v reason=%q", d.Allowed, d.Reason)
	}
	if d.RetryAfterSeconds != 299 {
		t.Fatalf("retry after = %d, want 299", d.RetryAfterSeconds)
	}

	// Even far outside the burst window the ban still applies.
	*now = now.Add(60 * time.Second)
	if d := c.Check("1.2.3.4", "/v1/ask"); d.Allowed || d.Reason != ReasonBanned {
		t.Fatalf("expected banned denial outside burst window, got allowed=%v reason=%q", d.Allowed, d.Reason)
	}
}

func TestBanExpires(t *testing.T) {
	c, now := newTestController(Rule{BurstLimit: 1, RequestsPerMinute: 20, RequestsPerHour: 100})

	c.Check("client", "/v1/ask")
	if d := c.Check("client", "/v1/ask"); d.Reason != ReasonBurstLimit {
		t.Fatalf("expected burst_limit, got %q", d.Reason)
	}

	*now = now.Add(300 * time.Second)
	if d := c.Check("client", "/v1/ask"); !d.Allowed {
		t.Fatalf("expected admission after ban expiry, got %q", d.Reason)
	}
}

func TestMinuteAndHourDenialsDoNotBan(t *testing.T) {
	c, now := newTestController(Rule{BurstLimit: 100, RequestsPerMinute: 2, RequestsPerHour: 100})

	c.Check("client", "/v1/ask")
	c.Check("client", "/v1/ask")

	d := c.Check("client", "/v1/ask")
	if d.Allowed || d.Reason != ReasonRateLimit {
		t.Fatalf("expected rate_limit denial, got allowed=%v reason=%q", d.Allowed, d.Reason)
	}
	if d.RetryAfterSeconds != 60 {
		t.Fatalf("retry after = %d, want 60", d.RetryAfterSeconds)
	}

	// No ban was created: once the minute window rolls over the client is
	// admitted again.
	*now = now.Add(61 * time.Second)
	if d := c.Check("client", "/v1/ask"); !d.Allowed {
		t.Fatalf("expected admission after minute window, got %q", d.Reason)
	}
}

func TestHourlyDenial(t *testing.T) {
	c, now := newTestController(Rule{BurstLimit: 100, RequestsPerMinute: 100, RequestsPerHour: 3})

	for i := 0; i < 3; i++ {
		if d := c.Check("client", "/v1/ask"); !d.Allowed {
			t.Fatalf("request %d: expected allowed, got %q", i+1, d.Reason)
		}
		*now = now.Add(15 * time.Second)
	}

	d := c.Check("client", "/v1/ask")
	if d.Allowed || d.Reason != ReasonHourlyLimit {
		t.Fatalf("expected hourly_limit denial, got allowed=%v reason=%q", d.Allowed, d.Reason)
	}
	if d.RetryAfterSeconds != 3600 {
		t.Fatalf("retry after = %d, want 3600", d.RetryAfterSeconds)
	}

	*now = now.Add(time.Hour)
	if d := c.Check("client", "/v1/ask"); !d.Allowed {
		t.Fatalf("expected admission after hour window, got %q", d.Reason)
	}
}

func TestEvictionIsIdempotent(t *testing.T) {
	c, now := newTestController(Rule{BurstLimit: 5, RequestsPerMinute: 20, RequestsPerHour: 100})

	c.Check("client", "/v1/ask")
	*now = now.Add(11 * time.Second)

	// Two immediate checks with no intervening time must observe the same
	// burst count.
	first := c.Check("client", "/v1/ask")
	second := c.Check("client", "/v1/ask")
	if first.Remaining.Burst != 4 {
		t.Fatalf("first remaining burst = %d, want 4", first.Remaining.Burst)
	}
	if second.Remaining.Burst != 3 {
		t.Fatalf("second remaining burst = %d, want 3", second.Remaining.Burst)
	}
}

func TestIdentitiesAreIndependent(t *testing.T) {
	c, _ := newTestController(Rule{BurstLimit: 1, RequestsPerMinute: 20, RequestsPerHour: 100})

	c.Check("a", "/v1/ask")
	if d := c.Check("a", "/v1/ask"); d.Allowed {
		t.Fatal("expected denial for a")
	}
	if d := c.Check("b", "/v1/ask"); !d.Allowed {
		t.Fatalf("expected b unaffected by a's ban, got %q", d.Reason)
	}
}

func TestEndpointRuleResolution(t *testing.T) {
	c, _ := newTestController(Rule{BurstLimit: 10, RequestsPerMinute: 20, RequestsPerHour: 100})
	c.SetRule("/v1/ask", Rule{BurstLimit: 1, RequestsPerMinute: 5, RequestsPerHour: 10})
	c.SetRule("/v1", Rule{BurstLimit: 2, RequestsPerMinute: 5, RequestsPerHour: 10})

	// Exact match wins over prefix.
	c.Check("client", "/v1/ask")
	if d := c.Check("client", "/v1/ask"); d.Allowed {
		t.Fatal("expected exact-match rule with burst 1 to apply")
	}

	// Prefix match applies to other /v1 endpoints.
	c.Check("other", "/v1/search")
	c.Check("other", "/v1/search")
	if d := c.Check("other", "/v1/search"); d.Allowed {
		t.Fatal("expected prefix rule with burst 2 to apply")
	}

	// Unmatched endpoints use the default rule.
	if d := c.Check("third", "/health"); !d.Allowed || d.Remaining.Burst != 9 {
		t.Fatalf("expected default rule, got allowed=%v remaining=%d", d.Allowed, d.Remaining.Burst)
	}
}

func TestZeroLimitAlwaysDenies(t *testing.T) {
	c, _ := newTestController(Rule{BurstLimit: 10, RequestsPerMinute: 0, RequestsPerHour: 100})

	// A zero minute limit denies before anything is recorded; burst is
	// checked first so it must be above zero for this path.
	if d := c.Check("client", "/v1/ask"); d.Allowed || d.Reason != ReasonRateLimit {
		t.Fatalf("expected rate_limit denial for zero limit, got allowed=%v reason=%q", d.Allowed, d.Reason)
	}
}

func TestSweepDropsIdleClientsAndExpiredBans(t *testing.T) {
	c, now := newTestController(Rule{BurstLimit: 1, RequestsPerMinute: 20, RequestsPerHour: 100})

	c.Check("idle", "/v1/ask")
	c.Check("banned", "/v1/ask")
	c.Check("banned", "/v1/ask") // triggers ban

	*now = now.Add(2 * time.Hour)
	c.Sweep()

	if len(c.clients) != 0 {
		t.Fatalf("expected all clients swept, %d left", len(c.clients))
	}
	if len(c.bans) != 0 {
		t.Fatalf("expected expired bans swept, %d left", len(c.bans))
	}
}

func TestEndToEndScenario(t *testing.T) {
	c, now := newTestController(Rule{BurstLimit: 3, RequestsPerMinute: 20, RequestsPerHour: 100})

	wantBurst := []int{2, 1, 0}
	for i := 0; i < 3; i++ {
		d := c.Check("1.2.3.4", "/v1/ask")
		if !d.Allowed {
			t.Fatalf("request %d: denied with %q", i+1, d.Reason)
		}
		if d.Remaining.Burst != wantBurst[i] {
			t.Fatalf("request %d: remaining burst = %d, want %d", i+1, d.Remaining.Burst, wantBurst[i])
		}
	}

	d := c.Check("1.2.3.4", "/v1/ask")
	if d.Reason != ReasonBurstLimit || d.RetryAfterSeconds != 10 {
		t.Fatalf("request 4: reason=%q retry=%d, want burst_limit/10", d.Reason, d.RetryAfterSeconds)
	}

	*now = now.Add(time.Second)
	d = c.Check("1.2.3.4", "/v1/ask")
	if d.Reason != ReasonBanned || d.RetryAfterSeconds != 299 {
		t.Fatalf("request 5: reason=%q retry=%d, want banned/299", d.Reason, d.RetryAfterSeconds)
	}
}
