package admission

import "time"

// Window durations for the three granularities tracked per client.
const (
	BurstWindow  = 10 * time.Second
	MinuteWindow = time.Minute
	HourWindow   = time.Hour
)

// clientWindows holds the request timestamp logs for one client identity,
// one log per granularity. Entries are appended in chronological order and
// evicted lazily on each check.
type clientWindows struct {
	burst  []time.Time
	minute []time.Time
	hour   []time.Time
}

// evict drops timestamps that have fallen out of their window relative to now.
func (w *clientWindows) evict(now time.Time) {
	w.burst = evictBefore(w.burst, now.Add(-BurstWindow))
	w.minute = evictBefore(w.minute, now.Add(-MinuteWindow))
	w.hour = evictBefore(w.hour, now.Add(-HourWindow))
}

// record appends now to all three logs.
func (w *clientWindows) record(now time.Time) {
	w.burst = append(w.burst, now)
	w.minute = append(w.minute, now)
	w.hour = append(w.hour, now)
}

func (w *clientWindows) empty() bool {
	return len(w.hour) == 0
}

// evictBefore truncates the head of a chronologically ordered log. Entries at
// exactly the cutoff are kept.
func evictBefore(log []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(log) && log[i].Before(cutoff) {
		i++
	}
	if i == 0 {
		return log
	}
	return append(log[:0], log[i:]...)
}
