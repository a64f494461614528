package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/diewo77/go-crm/auth"
	"github.com/diewo77/go-crm/httpx"
	"github.com/diewo77/go-crm/internal/platform/logger"
	"github.com/diewo77/go-crm/internal/store"
	"golang.org/x/crypto/bcrypt"
)

type AuthHandler struct {
	users    store.Users
	sessions *auth.Sessions
	log      *logger.Logger
}

func NewAuthHandler(users store.Users, sessions *auth.Sessions, log *logger.Logger) *AuthHandler {
	return &AuthHandler{users: users, sessions: sessions, log: log}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		httpx.JSONErrorMessage(w, http.StatusBadRequest, "validation_failed", "email and password required", nil)
		return
	}
	user, err := h.users.FindUserByEmail(r.Context(), email)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			writeError(w, r, h.log, err)
			return
		}
		h.log.Warn("login failed", "email", email, "reason", "unknown user")
		httpx.JSONError(w, http.StatusUnauthorized, "invalid_credentials", nil)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		h.log.Warn("login failed", "email", email, "reason", "bad password")
		httpx.JSONError(w, http.StatusUnauthorized, "invalid_credentials", nil)
		return
	}
	h.sessions.Create(w, user.ID)
	h.log.Info("login", "user_id", user.ID)
	httpx.JSON(w, http.StatusOK, userResponse{ID: user.ID, Email: user.Email, Name: user.Name})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Clear(w)
	httpx.NoContent(w)
}

// Me reports the signed-in user, or 401.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	user, err := h.users.GetUser(r.Context(), uid)
	if errors.Is(err, store.ErrNotFound) {
		h.sessions.Clear(w)
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, userResponse{ID: user.ID, Email: user.Email, Name: user.Name})
}
