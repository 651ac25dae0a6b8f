package admission

import (
	"strings"
	"sync"
	"time"
)

// Denial reasons returned in Decision.Reason.
const (
	ReasonBanned      = "banned"
	ReasonBurstLimit  = "burst_limit"
	ReasonRateLimit   = "rate_limit"
	ReasonHourlyLimit = "hourly_limit"
)

// Rule is the admission configuration applied to one endpoint pattern.
// A limit of 0 means "always deny".
type Rule struct {
	BurstLimit        int
	RequestsPerMinute int
	RequestsPerHour   int
}

// Remaining reports how many requests are left in each window after an
// admitted request.
type Remaining struct {
	Burst  int
	Minute int
	Hour   int
}

// Decision is the structured result of an admission check. No errors are
// used for control flow; every path returns a Decision.
type Decision struct {
	Allowed           bool
	Reason            string
	RetryAfterSeconds int
	Remaining         Remaining
}

type ban struct {
	bannedAt time.Time
	duration time.Duration
}

func (b ban) activeAt(now time.Time) bool {
	return now.Before(b.bannedAt.Add(b.duration))
}

type endpointRule struct {
	pattern string
	rule    Rule
}

// Controller decides whether to admit a request based on per-client sliding
// windows and a temporary ban table. Safe for concurrent use; the
// check-then-record step is atomic per check so two concurrent requests can
// never both be admitted past a limit.
type Controller struct {
	mu          sync.Mutex
	defaultRule Rule
	rules       []endpointRule
	banDuration time.Duration
	clients     map[string]*clientWindows
	bans        map[string]ban

	now func() time.Time
}

// NewController creates a controller with the given default rule. Bans issued
// on burst violations last banDuration.
func NewController(defaultRule Rule, banDuration time.Duration) *Controller {
	return &Controller{
		defaultRule: defaultRule,
		banDuration: banDuration,
		clients:     make(map[string]*clientWindows),
		bans:        make(map[string]ban),
		now:         time.Now,
	}
}

// BanDuration returns how long burst-violation bans last.
func (c *Controller) BanDuration() time.Duration {
	return c.banDuration
}

// SetRule registers a rule for an endpoint pattern. Patterns are matched
// exactly first, then by prefix (longest wins); unmatched endpoints fall back
// to the default rule.
func (c *Controller) SetRule(pattern string, rule Rule) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.rules {
		if c.rules[i].pattern == pattern {
			c.rules[i].rule = rule
			return
		}
	}
	c.rules = append(c.rules, endpointRule{pattern: pattern, rule: rule})
}

// Check runs the admission algorithm for one request and records it into the
// client's windows when admitted.
func (c *Controller) Check(identity, endpoint string) Decision {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()

	// 1. An active ban denies immediately.
	if b, ok := c.bans[identity]; ok {
		if b.activeAt(now) {
			left := b.bannedAt.Add(b.duration).Sub(now)
			return Decision{
				Allowed:           false,
				Reason:            ReasonBanned,
				RetryAfterSeconds: ceilSeconds(left),
			}
		}
		delete(c.bans, identity)
	}

	// 2. Resolve the rule for this endpoint.
	rule := c.resolveRule(endpoint)

	// 3. Evict stale timestamps.
	windows := c.clients[identity]
	if windows == nil {
		windows = &clientWindows{}
		c.clients[identity] = windows
	}
	windows.evict(now)

	// 4. Burst violations ban the client. Sustained minute/hour overages do
	// not: bursts indicate automation, sustained-but-legal usage is only
	// rejected.
	if len(windows.burst) >= rule.BurstLimit {
		c.bans[identity] = ban{bannedAt: now, duration: c.banDuration}
		return Decision{
			Allowed:           false,
			Reason:            ReasonBurstLimit,
			RetryAfterSeconds: int(BurstWindow / time.Second),
			Remaining:         remainingAfterDenial(rule, windows),
		}
	}

	// 5-6. Sustained-rate ceilings.
	if len(windows.minute) >= rule.RequestsPerMinute {
		return Decision{
			Allowed:           false,
			Reason:            ReasonRateLimit,
			RetryAfterSeconds: int(MinuteWindow / time.Second),
			Remaining:         remainingAfterDenial(rule, windows),
		}
	}
	if len(windows.hour) >= rule.RequestsPerHour {
		return Decision{
			Allowed:           false,
			Reason:            ReasonHourlyLimit,
			RetryAfterSeconds: int(HourWindow / time.Second),
			Remaining:         remainingAfterDenial(rule, windows),
		}
	}

	// 7. Admit and record.
	windows.record(now)
	return Decision{
		Allowed: true,
		Remaining: Remaining{
			Burst:  rule.BurstLimit - len(windows.burst),
			Minute: rule.RequestsPerMinute - len(windows.minute),
			Hour:   rule.RequestsPerHour - len(windows.hour),
		},
	}
}

// Sweep drops clients whose windows are fully expired and bans that have
// elapsed. Purely a memory bound for identities that never return; not
// required for correctness since eviction happens on the check path.
func (c *Controller) Sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for identity, windows := range c.clients {
		windows.evict(now)
		if windows.empty() {
			delete(c.clients, identity)
		}
	}
	for identity, b := range c.bans {
		if !b.activeAt(now) {
			delete(c.bans, identity)
		}
	}
}

func (c *Controller) resolveRule(endpoint string) Rule {
	for _, er := range c.rules {
		if er.pattern == endpoint {
			return er.rule
		}
	}

	best := -1
	rule := c.defaultRule
	for _, er := range c.rules {
		if strings.HasPrefix(endpoint, er.pattern) && len(er.pattern) > best {
			best = len(er.pattern)
			rule = er.rule
		}
	}
	return rule
}

func remainingAfterDenial(rule Rule, windows *clientWindows) Remaining {
	return Remaining{
		Burst:  clampZero(rule.BurstLimit - len(windows.burst)),
		Minute: clampZero(rule.RequestsPerMinute - len(windows.minute)),
		Hour:   clampZero(rule.RequestsPerHour - len(windows.hour)),
	}
}

func clampZero(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

func ceilSeconds(d time.Duration) int {
	secs := int(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}
	return secs
}
