package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bookloft/bookloft/internal/auth"
	"github.com/bookloft/bookloft/internal/handler/dto"
	"github.com/bookloft/bookloft/internal/model"
	"github.com/bookloft/bookloft/internal/service"
)

// AuthService is the business logic surface the auth handlers need.
// Implemented by *service.AuthService.
type AuthService interface {
	Signup(ctx context.Context, email, password string) (*model.User, error)
	Login(ctx context.Context, email, password string) (string, *model.User, error)
	DeleteAccount(ctx context.Context, userID, callerID, token string) error
}

// AuthHandler handles signup, login and account deletion.
type AuthHandler struct {
	auth   AuthService
	logger *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:   svc,
		logger: logger,
	}
}

// Signup handles POST /api/auth/signup.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req dto.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	user, err := h.auth.Signup(r.Context(), req.Email, req.Password)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("user_created", slog.String("user_id", user.ID))

	writeJSON(w, http.StatusCreated, dto.SignupResponse{
		Message: "User created successfully!",
		UserID:  user.ID,
	})
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	token, user, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("user_logged_in", slog.String("user_id", user.ID))

	writeJSON(w, http.StatusOK, dto.LoginResponse{
		Token:  token,
		UserID: user.ID,
	})
}

// DeleteUser handles DELETE /api/auth/user/{userId}.
func (h *AuthHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFromContext(r.Context())
	if identity == nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated.")
		return
	}

	userID := chi.URLParam(r, "userId")

	if err := h.auth.DeleteAccount(r.Context(), userID, identity.UserID, identity.Token); err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("user_deleted", slog.String("user_id", userID))

	writeJSON(w, http.StatusOK, dto.MessageResponse{
		Message: "User deleted successfully!",
	})
}

// handleServiceError maps auth service errors to HTTP responses.
func (h *AuthHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidEmail):
		writeError(w, http.StatusUnprocessableEntity, "Invalid email address.")
	case errors.Is(err, service.ErrPasswordTooShort):
		writeError(w, http.StatusUnprocessableEntity, "Password must be at least 8 characters.")
	case errors.Is(err, service.ErrEmailTaken):
		writeError(w, http.StatusConflict, "Email address already in use.")
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid email or password.")
	case errors.Is(err, service.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "No user found!")
	case errors.Is(err, service.ErrNotSelf):
		writeError(w, http.StatusForbidden, "Not authorized!")
	default:
		h.logger.Error("internal_error", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "An internal error occurred.")
	}
}
