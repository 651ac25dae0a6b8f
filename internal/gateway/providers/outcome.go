package providers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
)

// DefaultRetryAfter is assumed when the upstream rate-limits without a
// usable retry hint.
const DefaultRetryAfter = 60 * time.Second

// classifyError maps an upstream error onto a tagged outcome. 429 becomes
// RateLimited, auth and malformed-request errors are Fatal (never retried,
// never tier-advanced), everything else is Transient.
func classifyError(err error) Outcome {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.HTTPStatusCode, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return classifyStatus(reqErr.HTTPStatusCode, err)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Outcome{Kind: OutcomeTransient, Err: err}
	}

	// Network-level failures: connection refused, DNS, timeouts.
	return Outcome{Kind: OutcomeTransient, Err: err}
}

func classifyStatus(status int, err error) Outcome {
	switch {
	case status == http.StatusTooManyRequests:
		return Outcome{Kind: OutcomeRateLimited, RetryAfter: DefaultRetryAfter, Err: err}
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return Outcome{Kind: OutcomeFatal, Err: err}
	case status == http.StatusBadRequest || status == http.StatusNotFound:
		return Outcome{Kind: OutcomeFatal, Err: err}
	default:
		return Outcome{Kind: OutcomeTransient, Err: err}
	}
}
