package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/ymori/authkit/internal/models"
	"github.com/ymori/authkit/internal/services"
	pkghttp "github.com/ymori/authkit/pkg/http"
)

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	SignIn(ctx context.Context, email, password, ipAddress string) (*services.SignInResult, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service  AuthServiceInterface
	ipConfig *pkghttp.IPConfig
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, ipConfig *pkghttp.IPConfig) *AuthHandler {
	return &AuthHandler{
		service:  service,
		ipConfig: ipConfig,
	}
}

// SignInRequest represents the request body for sign-in
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SignIn handles user sign-in
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	ipAddress := pkghttp.ExtractClientIP(r, h.ipConfig)

	result, err := h.service.SignIn(r.Context(), req.Email, req.Password, ipAddress)
	if err != nil {
		writeSignInError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, result)
}

// writeSignInError maps sign-in failures onto the API error envelope.
func writeSignInError(w http.ResponseWriter, err error) {
	var rateErr *models.RateLimitedError
	var lockedErr *models.AccountLockedError
	var credErr *models.InvalidCredentialsError

	switch {
	case errors.As(err, &rateErr):
		seconds := ceilSeconds(rateErr.RetryAfter)
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
		pkghttp.WriteErrorResponse(w, http.StatusTooManyRequests, pkghttp.ErrorResponse{
			Code:              pkghttp.CodeRateLimitExceeded,
			Message:           "Too many sign-in attempts. Please try again later.",
			RetryAfterSeconds: seconds,
		})
	case errors.As(err, &lockedErr):
		seconds := ceilSeconds(time.Until(lockedErr.Until))
		until := lockedErr.Until.UTC()
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
		pkghttp.WriteErrorResponse(w, http.StatusLocked, pkghttp.ErrorResponse{
			Code: pkghttp.CodeAccountLocked,
			Message: fmt.Sprintf(
				"Account is temporarily locked due to repeated failed sign-in attempts. Try again in %s.",
				humanWait(seconds)),
			RetryAfterSeconds: seconds,
			LockedUntil:       &until,
		})
	case errors.As(err, &credErr):
		resp := pkghttp.ErrorResponse{
			Code:    pkghttp.CodeInvalidCredentials,
			Message: "Invalid email or password.",
		}
		if credErr.RemainingKnown {
			remaining := credErr.RemainingAttempts
			resp.RemainingAttempts = &remaining
		}
		pkghttp.WriteErrorResponse(w, http.StatusUnauthorized, resp)
	case errors.Is(err, models.ErrInvalidUserID):
		pkghttp.WriteError(w, http.StatusBadRequest, pkghttp.CodeInvalidUserID,
			"Invalid user identifier.")
	case errors.Is(err, models.ErrTokenSessionCreation):
		pkghttp.WriteError(w, http.StatusInternalServerError, pkghttp.CodeTokenSessionCreation,
			"Failed to create session. Please try again.")
	default:
		pkghttp.WriteError(w, http.StatusInternalServerError, pkghttp.CodeAuthentication,
			"Authentication failed. Please try again.")
	}
}

// ceilSeconds rounds up so clients never retry inside the window.
func ceilSeconds(d time.Duration) int {
	seconds := int(math.Ceil(d.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	return seconds
}

// humanWait renders a wait in whole minutes once past a minute.
func humanWait(seconds int) string {
	if seconds < 60 {
		if seconds == 1 {
			return "1 second"
		}
		return fmt.Sprintf("%d seconds", seconds)
	}
	minutes := (seconds + 59) / 60
	if minutes == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", minutes)
}
