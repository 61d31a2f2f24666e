package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ymori/authkit/internal/models"
	"github.com/ymori/authkit/internal/services"
	pkghttp "github.com/ymori/authkit/pkg/http"
)

type mockAuthService struct {
	SignInFunc func(ctx context.Context, email, password, ipAddress string) (*services.SignInResult, error)
}

func (m *mockAuthService) SignIn(ctx context.Context, email, password, ipAddress string) (*services.SignInResult, error) {
	if m.SignInFunc != nil {
		return m.SignInFunc(ctx, email, password, ipAddress)
	}
	return &services.SignInResult{
		SessionID:   "session_1",
		AccessToken: "access_token",
		User:        &services.UserResponse{ID: "user_123", Email: email},
	}, nil
}

func postSignIn(t *testing.T, h *AuthHandler, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/auth/signin", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.SignIn(w, req)
	return w
}

func decodeErrorResponse(t *testing.T, w *httptest.ResponseRecorder) pkghttp.ErrorResponse {
	t.Helper()

	var resp pkghttp.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

func TestSignInHandler_Success(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, pkghttp.DefaultIPConfig())

	w := postSignIn(t, h, `{"email":"user@example.com","password":"secret-pass"}`)

	assert.Equal(t, http.StatusOK, w.Code)

	var result services.SignInResult
	require.NoError(t, json.NewDecoder(w.Body).Decode(&result))
	assert.Equal(t, "access_token", result.AccessToken)
	assert.Equal(t, "user_123", result.User.ID)
}

func TestSignInHandler_InvalidBody(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, pkghttp.DefaultIPConfig())

	w := postSignIn(t, h, `{not json`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, pkghttp.CodeBadRequest, decodeErrorResponse(t, w).Code)
}

func TestSignInHandler_MissingFields(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, pkghttp.DefaultIPConfig())

	w := postSignIn(t, h, `{"email":"not-an-email","password":""}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSignInHandler_RateLimited(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{
		SignInFunc: func(ctx context.Context, email, password, ipAddress string) (*services.SignInResult, error) {
			return nil, &models.RateLimitedError{RetryAfter: 42500 * time.Millisecond}
		},
	}, pkghttp.DefaultIPConfig())

	w := postSignIn(t, h, `{"email":"user@example.com","password":"secret-pass"}`)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "43", w.Header().Get("Retry-After"))

	resp := decodeErrorResponse(t, w)
	assert.Equal(t, pkghttp.CodeRateLimitExceeded, resp.Code)
	assert.Equal(t, 43, resp.RetryAfterSeconds)
}

func TestSignInHandler_AccountLocked(t *testing.T) {
	until := time.Now().Add(10 * time.Minute)
	h := NewAuthHandler(&mockAuthService{
		SignInFunc: func(ctx context.Context, email, password, ipAddress string) (*services.SignInResult, error) {
			return nil, &models.AccountLockedError{Until: until}
		},
	}, pkghttp.DefaultIPConfig())

	w := postSignIn(t, h, `{"email":"user@example.com","password":"secret-pass"}`)

	assert.Equal(t, http.StatusLocked, w.Code)

	headerSeconds, err := strconv.Atoi(w.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.InDelta(t, 600, headerSeconds, 5)

	resp := decodeErrorResponse(t, w)
	assert.Equal(t, pkghttp.CodeAccountLocked, resp.Code)
	assert.Equal(t, headerSeconds, resp.RetryAfterSeconds)
	require.NotNil(t, resp.LockedUntil)
	assert.WithinDuration(t, until, *resp.LockedUntil, time.Second)
	assert.Contains(t, resp.Message, "10 minutes")
}

func TestHumanWait(t *testing.T) {
	assert.Equal(t, "1 second", humanWait(1))
	assert.Equal(t, "45 seconds", humanWait(45))
	assert.Equal(t, "1 minute", humanWait(60))
	assert.Equal(t, "2 minutes", humanWait(61))
	assert.Equal(t, "10 minutes", humanWait(599))
}

func TestSignInHandler_InvalidCredentials(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{
		SignInFunc: func(ctx context.Context, email, password, ipAddress string) (*services.SignInResult, error) {
			return nil, &models.InvalidCredentialsError{RemainingAttempts: 2, RemainingKnown: true}
		},
	}, pkghttp.DefaultIPConfig())

	w := postSignIn(t, h, `{"email":"user@example.com","password":"wrong-pass"}`)

	assert.Equal(t, http.StatusUnauthorized, w.Code)

	resp := decodeErrorResponse(t, w)
	assert.Equal(t, pkghttp.CodeInvalidCredentials, resp.Code)
	require.NotNil(t, resp.RemainingAttempts)
	assert.Equal(t, 2, *resp.RemainingAttempts)
}

func TestSignInHandler_InvalidCredentialsUnknownRemaining(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{
		SignInFunc: func(ctx context.Context, email, password, ipAddress string) (*services.SignInResult, error) {
			return nil, &models.InvalidCredentialsError{}
		},
	}, pkghttp.DefaultIPConfig())

	w := postSignIn(t, h, `{"email":"user@example.com","password":"wrong-pass"}`)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Nil(t, decodeErrorResponse(t, w).RemainingAttempts)
}

func TestSignInHandler_InvalidUserID(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{
		SignInFunc: func(ctx context.Context, email, password, ipAddress string) (*services.SignInResult, error) {
			return nil, models.ErrInvalidUserID
		},
	}, pkghttp.DefaultIPConfig())

	w := postSignIn(t, h, `{"email":"user@example.com","password":"secret-pass"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, pkghttp.CodeInvalidUserID, decodeErrorResponse(t, w).Code)
}

func TestSignInHandler_SessionCreationFailure(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{
		SignInFunc: func(ctx context.Context, email, password, ipAddress string) (*services.SignInResult, error) {
			return nil, models.ErrTokenSessionCreation
		},
	}, pkghttp.DefaultIPConfig())

	w := postSignIn(t, h, `{"email":"user@example.com","password":"secret-pass"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, pkghttp.CodeTokenSessionCreation, decodeErrorResponse(t, w).Code)
}

func TestSignInHandler_UnexpectedError(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{
		SignInFunc: func(ctx context.Context, email, password, ipAddress string) (*services.SignInResult, error) {
			return nil, models.ErrAuthentication
		},
	}, pkghttp.DefaultIPConfig())

	w := postSignIn(t, h, `{"email":"user@example.com","password":"secret-pass"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, pkghttp.CodeAuthentication, decodeErrorResponse(t, w).Code)
}
