package fallback

import "fmt"

// Degraded response kinds, used for the Answer.DegradedKind annotation and
// for metrics labels.
const (
	DegradedRateLimited   = "rate_limited"
	DegradedUpstreamError = "upstream_error"
	DegradedNoCredentials = "no_credentials"
)

// The degraded payloads are deterministic local text, never free text from
// the remote model: a well-formed question always yields a usable response.

func rateLimitedResponse(question string, secondsRemaining int) string {
	retryHint := "Please try again in a few minutes."
	if secondsRemaining > 0 {
		retryHint = fmt.Sprintf("Please try again in about %d seconds.", secondsRemaining)
	}

	return fmt.Sprintf(
		"Your question was received but could not be answered right now.\n\n"+
			"Question: %s\n\n"+
			"All available research models are currently rate-limited by the "+
			"upstream provider. %s If the problem persists, consider reducing "+
			"how frequently questions are submitted.",
		question, retryHint)
}

func upstreamErrorResponse(question string, lastErr error) string {
	detail := "unknown error"
	if lastErr != nil {
		detail = lastErr.Error()
	}

	return fmt.Sprintf(
		"Your question was received but could not be answered right now.\n\n"+
			"Question: %s\n\n"+
			"The research model did not respond after several attempts "+
			"(last error: %s). Please try again shortly; if the problem "+
			"persists, contact the administrator.",
		question, detail)
}

func noCredentialsResponse(question string) string {
	return fmt.Sprintf(
		"Your question was received but no research model is configured.\n\n"+
			"Question: %s\n\n"+
			"The gateway has no API credentials for the upstream provider. "+
			"Set OPENAI_API_KEY (and OPENAI_BASE_URL if needed) and restart "+
			"the service.",
		question)
}
