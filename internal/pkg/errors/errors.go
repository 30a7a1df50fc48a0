package errors

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the JSON envelope for every non-2xx API answer.
type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

// Request and management errors.
const (
	ErrCodeInvalidInput      = "INVALID_INPUT"
	ErrCodeInvalidRules      = "INVALID_RULES"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeConflict          = "CONFLICT"
	ErrCodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal          = "INTERNAL_ERROR"
)

// Terminal states of a short link visit. NOT_FOUND is shared with the
// management API.
const (
	ErrCodePaused           = "PAUSED"
	ErrCodeRestricted       = "RESTRICTED"
	ErrCodeExpired          = "EXPIRED"
	ErrCodeScheduledNotYet  = "SCHEDULED_NOT_YET"
	ErrCodePasswordRequired = "PASSWORD_REQUIRED"
)

func WriteError(w http.ResponseWriter, status int, code, message string, details interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    code,
		Details: details,
	})
}
