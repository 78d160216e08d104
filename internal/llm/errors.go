// Package llm implements the backend selection core: the credential pool
// walk, the model priority table, the per-pair availability ledger and the
// selector state machine that ties them together.
package llm

import "strings"

// ErrorType categorizes backend errors for failover decisions. Only quota
// advances the selector; everything else is surfaced without retry.
type ErrorType string

const (
	ErrorTypeQuota   ErrorType = "quota"
	ErrorTypeTimeout ErrorType = "timeout"
	ErrorTypeOther   ErrorType = "other"
)

// ClassifyError determines the error type from a backend error message.
// The backend reports errors as strings carrying the HTTP status and the
// API error payload; matching is substring-based on purpose, the same way
// every provider SDK ends up doing it.
func ClassifyError(msg string) ErrorType {
	if msg == "" {
		return ErrorTypeOther
	}
	if isQuotaMessage(msg) {
		return ErrorTypeQuota
	}
	if isTimeoutMessage(msg) {
		return ErrorTypeTimeout
	}
	return ErrorTypeOther
}

// IsQuota reports whether an error indicates rate-limiting or resource
// exhaustion for the (model, credential) pair in use.
func IsQuota(err error) bool {
	return err != nil && isQuotaMessage(err.Error())
}

func isQuotaMessage(msg string) bool {
	lower := strings.ToLower(msg)

	// HTTP 429
	if strings.Contains(lower, "429") {
		return true
	}

	if strings.Contains(lower, "rate_limit") ||
		strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "too many requests") ||
		strings.Contains(lower, "quota exceeded") ||
		strings.Contains(lower, "exceeded your current quota") ||
		strings.Contains(lower, "resource_exhausted") ||
		strings.Contains(lower, "resource has been exhausted") ||
		strings.Contains(lower, "requests per minute") ||
		strings.Contains(lower, "requests per day") {
		return true
	}

	return false
}

func isTimeoutMessage(msg string) bool {
	lower := strings.ToLower(msg)

	if strings.Contains(lower, "408") || strings.Contains(lower, "504") {
		return true
	}

	return strings.Contains(lower, "timeout") ||
		strings.Contains(lower, "timed out") ||
		strings.Contains(lower, "deadline exceeded")
}
