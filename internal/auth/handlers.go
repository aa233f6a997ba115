package auth

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"go.uber.org/zap"

	"homeservices/internal/api"
)

type Handlers struct {
	Sessions   *Repository
	SessionTTL time.Duration
	Log        *zap.Logger
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      User      `json:"user"`
}

func (h Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid json")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "email and password are required")
		return
	}

	u, err := h.Sessions.findUserByEmail(r.Context(), req.Email)
	if err != nil {
		api.WriteWorkflowError(w, err)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		api.WriteError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "invalid credentials")
		return
	}

	token, tokenHash, err := NewToken()
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}
	expiresAt := time.Now().Add(h.SessionTTL)
	if err := h.Sessions.CreateSession(r.Context(), tokenHash, u.ID, expiresAt); err != nil {
		h.Log.Error("create session", zap.Error(err))
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(LoginResponse{Token: token, ExpiresAt: expiresAt, User: u.User})
}

func (h Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		api.WriteError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "missing bearer token")
		return
	}
	if err := h.Sessions.RevokeSession(r.Context(), token, time.Now()); err != nil {
		h.Log.Error("revoke session", zap.Error(err))
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
