package handler

import (
	"log/slog"
	"net/http"

	"github.com/foodrescue/foodrescue/internal/apierror"
	"github.com/foodrescue/foodrescue/internal/ctxkeys"
	"github.com/foodrescue/foodrescue/internal/model"
	"github.com/foodrescue/foodrescue/internal/service"
)

type authHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *authHandler {
	return &authHandler{authService: authService}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	User      *model.User `json:"user"`
	CSRFToken string      `json:"csrf_token,omitempty"`
}

func (h *authHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterInput
	err := decodeJSON(w, r, &req)
	if err != nil {
		apierror.ValidationError(w, err.Error())
		return
	}

	user, err := h.authService.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	err = h.authService.IssueSession(w, user)
	if err != nil {
		slog.Error("failed to issue session after registration", "error", err, "user_id", user.ID)
		apierror.InternalError(w)
		return
	}

	writeJSON(w, http.StatusCreated, sessionResponse{User: user, CSRFToken: ctxkeys.CSRFToken(r.Context())})
}

func (h *authHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	err := decodeJSON(w, r, &req)
	if err != nil {
		apierror.ValidationError(w, err.Error())
		return
	}
	if req.Email == "" || req.Password == "" {
		apierror.ValidationError(w, "email and password are required")
		return
	}

	user, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	err = h.authService.IssueSession(w, user)
	if err != nil {
		slog.Error("failed to issue session", "error", err, "user_id", user.ID)
		apierror.InternalError(w)
		return
	}

	slog.Info("user logged in", "user_id", user.ID)
	writeJSON(w, http.StatusOK, sessionResponse{User: user, CSRFToken: ctxkeys.CSRFToken(r.Context())})
}

func (h *authHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.authService.ClearJWTCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *authHandler) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionResponse{
		User:      ctxkeys.User(r.Context()),
		CSRFToken: ctxkeys.CSRFToken(r.Context()),
	})
}

// CSRF returns the token browser clients echo in the X-CSRF-Token header.
func (h *authHandler) CSRF(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"csrf_token": ctxkeys.CSRFToken(r.Context())})
}
