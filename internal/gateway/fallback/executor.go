package fallback

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/lawquery/lexgate/internal/gateway/providers"
)

// Question is one legal-research question.
type Question struct {
	Text     string
	Context  string
	Language string
}

// Answer is the result of Generate. Degraded answers carry deterministic
// local text instead of model output; the caller always receives a usable
// answer for a well-formed question.
type Answer struct {
	Text         string
	TierUsed     string
	TierLabel    string
	Degraded     bool
	DegradedKind string
}

// Options configures the executor's retry behavior.
type Options struct {
	MaxAttempts int           // remote call attempts per tier, default 3
	BackoffBase time.Duration // first backoff delay, doubled per retry, default 1s
	MaxTokens   int
	Temperature float32
}

// Executor drives one logical "generate an answer" operation against the
// model hierarchy: success returns the model's text annotated with its tier,
// rate limits advance the tier cursor, transient errors retry the same tier
// with exponential backoff, and exhausted or fatal outcomes produce a
// degraded response.
//
// The tier cursor persists across calls. Once the executor has degraded to a
// lower tier, later calls start from that tier until ResetToPremium is
// invoked (e.g. on a periodic cadence from the owning process). Concurrent
// advances race benignly: the cursor only moves forward and a double advance
// lands on the same tier as a single one.
type Executor struct {
	hierarchy *Hierarchy
	client    providers.Client
	signal    *RateLimitSignal
	opts      Options
	cursor    atomic.Int32

	sleep func(ctx context.Context, d time.Duration) error
}

// NewExecutor builds an executor over the given hierarchy and client.
func NewExecutor(hierarchy *Hierarchy, client providers.Client, signal *RateLimitSignal, opts Options) *Executor {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = time.Second
	}
	if signal == nil {
		signal = NewRateLimitSignal()
	}

	return &Executor{
		hierarchy: hierarchy,
		client:    client,
		signal:    signal,
		opts:      opts,
		sleep:     sleepContext,
	}
}

// Signal exposes the shared rate-limit signal for callers that want to avoid
// retrying before the upstream reset.
func (e *Executor) Signal() *RateLimitSignal {
	return e.signal
}

// CurrentTier returns the tier the next Generate call will start from.
func (e *Executor) CurrentTier() ModelTier {
	return e.hierarchy.Tier(int(e.cursor.Load()))
}

// ResetToPremium moves the cursor back to the most preferred tier. A plain
// overwrite: a race with a concurrent advance is acceptable, the cursor is a
// best-effort optimization.
func (e *Executor) ResetToPremium() {
	e.cursor.Store(0)
}

// advance moves the cursor from the observed index one tier down. CAS keeps
// a pair of racing requests from skipping a tier.
func (e *Executor) advance(from int) {
	e.cursor.CompareAndSwap(int32(from), int32(from+1))
}

// Generate answers one question. It never returns an error: upstream rate
// limits, transient failures and fatal faults are all absorbed into degraded
// answers.
func (e *Executor) Generate(ctx context.Context, q Question) Answer {
	if e.client == nil || !e.client.Ready() {
		return Answer{
			Text:         noCredentialsResponse(q.Text),
			Degraded:     true,
			DegradedKind: DegradedNoCredentials,
		}
	}

	attempt := 0
	tierIndex := int(e.cursor.Load())

	for {
		tier := e.hierarchy.Tier(tierIndex)
		outcome := e.client.Complete(ctx, providers.CompletionRequest{
			Model:       tier.Name,
			Question:    q.Text,
			Context:     q.Context,
			Language:    q.Language,
			MaxTokens:   e.opts.MaxTokens,
			Temperature: e.opts.Temperature,
		})

		switch outcome.Kind {
		case providers.OutcomeSuccess:
			e.signal.Reset()
			return Answer{
				Text:      outcome.Text,
				TierUsed:  tier.Name,
				TierLabel: tier.Label,
			}

		case providers.OutcomeRateLimited:
			retryAfter := outcome.RetryAfter
			if retryAfter <= 0 {
				retryAfter = providers.DefaultRetryAfter
			}
			e.signal.Record(retryAfter)

			// Advancing a tier consumes no retry attempt and no sleep.
			if tierIndex+1 < e.hierarchy.Len() {
				e.advance(tierIndex)
				tierIndex++
				continue
			}
			return Answer{
				Text:         rateLimitedResponse(q.Text, e.signal.SecondsRemaining()),
				TierUsed:     tier.Name,
				Degraded:     true,
				DegradedKind: DegradedRateLimited,
			}

		case providers.OutcomeFatal:
			// Not retried, not tier-advanced.
			return Answer{
				Text:         upstreamErrorResponse(q.Text, outcome.Err),
				TierUsed:     tier.Name,
				Degraded:     true,
				DegradedKind: DegradedUpstreamError,
			}

		default: // transient
			attempt++
			if attempt >= e.opts.MaxAttempts {
				return Answer{
					Text:         upstreamErrorResponse(q.Text, outcome.Err),
					TierUsed:     tier.Name,
					Degraded:     true,
					DegradedKind: DegradedUpstreamError,
				}
			}

			delay := e.opts.BackoffBase << (attempt - 1)
			if err := e.sleep(ctx, delay); err != nil {
				// Caller is gone; abandon the retry.
				return Answer{
					Text:         upstreamErrorResponse(q.Text, err),
					TierUsed:     tier.Name,
					Degraded:     true,
					DegradedKind: DegradedUpstreamError,
				}
			}
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
