package http

import (
	"encoding/json"
	"net/http"
	"time"
)

// Error codes exposed to API clients
const (
	CodeBadRequest           = "BAD_REQUEST"
	CodeNotFound             = "NOT_FOUND"
	CodeConflict             = "CONFLICT"
	CodeRateLimitExceeded    = "RATE_LIMIT_EXCEEDED"
	CodeAccountLocked        = "ACCOUNT_LOCKED"
	CodeInvalidCredentials   = "INVALID_CREDENTIALS"
	CodeInvalidUserID        = "INVALID_USER_ID"
	CodeTokenSessionCreation = "TOKEN_SESSION_CREATION_ERROR"
	CodeAuthentication       = "AUTHENTICATION_ERROR"
	CodeInternal             = "INTERNAL_ERROR"
)

// ErrorResponse represents a standard API error response
type ErrorResponse struct {
	Code              string `json:"code"`
	Message           string `json:"message"`
	RetryAfterSeconds int    `json:"retry_after_seconds,omitempty"`
	RemainingAttempts *int   `json:"remaining_attempts,omitempty"`

	// LockedUntil is set on ACCOUNT_LOCKED responses.
	LockedUntil *time.Time `json:"locked_until,omitempty"`
}

// WriteError writes a JSON error response with the given status code
func WriteError(w http.ResponseWriter, statusCode int, code, message string) {
	WriteErrorResponse(w, statusCode, ErrorResponse{Code: code, Message: message})
}

// WriteErrorResponse writes a fully-populated error envelope
func WriteErrorResponse(w http.ResponseWriter, statusCode int, resp ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	// Log encoding errors but don't expose them to client
	_ = json.NewEncoder(w).Encode(resp)
}

// Common error writers for consistency
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeBadRequest, message)
}

func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, CodeNotFound, message)
}

func WriteConflict(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, CodeConflict, message)
}

func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, CodeInternal, message)
}

// WriteJSON writes a success payload with the given status code
func WriteJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}
