package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ymori/authkit/internal/models"
	"github.com/ymori/authkit/internal/services"
	pkghttp "github.com/ymori/authkit/pkg/http"
)

// UserServiceInterface defines the interface for user business logic
type UserServiceInterface interface {
	Register(ctx context.Context, email, password, name string) (*services.UserResponse, error)
	GetUser(ctx context.Context, id string) (*services.UserResponse, error)
	UpdateProfile(ctx context.Context, id, name string) (*services.UserResponse, error)
}

// UserHandler handles user-related HTTP requests
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{service: service}
}

// RegisterRequest represents the request body for registration
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name" validate:"required,min=1,max=100"`
}

// UpdateProfileRequest represents the request body for profile updates
type UpdateProfileRequest struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

// Register handles user registration
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	user, err := h.service.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrConflict):
			pkghttp.WriteConflict(w, "An account with this email already exists")
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, err.Error())
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, user)
}

// GetUser handles fetching a user by ID
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		pkghttp.WriteBadRequest(w, "User ID is required")
		return
	}

	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "User not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, user)
}

// UpdateProfile handles updating a user's profile
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		pkghttp.WriteBadRequest(w, "User ID is required")
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), id, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "User not found")
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, err.Error())
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, user)
}
