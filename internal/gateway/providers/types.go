package providers

import (
	"context"
	"time"
)

// CompletionRequest is a single outbound call to the upstream LLM.
type CompletionRequest struct {
	Model       string
	Question    string
	Context     string
	Language    string
	MaxTokens   int
	Temperature float32
}

// OutcomeKind classifies the result of a remote call. Retry and fallback
// decisions branch on this value, never on error control flow.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeRateLimited
	OutcomeTransient
	OutcomeFatal
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeTransient:
		return "transient"
	case OutcomeFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Outcome is the tagged result of one remote call.
type Outcome struct {
	Kind       OutcomeKind
	Text       string
	RetryAfter time.Duration // only set for OutcomeRateLimited
	Err        error
}

// Client is the interface to the upstream LLM provider.
type Client interface {
	// Complete issues one completion call. It never returns an error;
	// failures are reported through the outcome kind.
	Complete(ctx context.Context, req CompletionRequest) Outcome

	// Ready reports whether credentials are configured.
	Ready() bool
}
