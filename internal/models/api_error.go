package models

// Stable error codes returned to clients.
const (
	CodeValidationFailed = "validation_failed"
	CodeInvalidID        = "invalid_id"
	CodeUnauthorized     = "unauthorized"
	CodeForbidden        = "forbidden"
	CodeNotFound         = "not_found"
	CodeConflict         = "conflict"
	CodeRateLimited      = "rate_limited"
	CodeUnavailable      = "unavailable"
	CodeInternal         = "internal_error"
)

// APIError is the body of every error response.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retryAfter,omitempty"` // seconds
}

func (e APIError) Error() string {
	return e.Code + ": " + e.Message
}
