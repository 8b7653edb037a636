package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/duskveil/game-api/internal/trait"
	"github.com/duskveil/game-api/internal/user"
	"github.com/duskveil/game-api/internal/web"
)

// Handler exposes register and login.
type Handler struct {
	users  *user.Service
	issuer *TokenIssuer
	logger *zap.SugaredLogger
}

func NewHandler(users *user.Service, issuer *TokenIssuer, logger *zap.SugaredLogger) *Handler {
	return &Handler{users: users, issuer: issuer, logger: logger}
}

// RegisterRequest is the JSON signup payload.
type RegisterRequest struct {
	Username     string        `json:"username"`
	Email        string        `json:"email"`
	Password     string        `json:"password"`
	TraitProfile trait.Profile `json:"trait_profile"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.Error(w, http.StatusBadRequest, "invalid payload")
		return
	}
	id, err := h.users.Register(r.Context(), req.Username, req.Email, req.Password, req.TraitProfile)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrValidation):
			web.Error(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, user.ErrDuplicate):
			web.Error(w, http.StatusBadRequest, "username or email already exists")
		default:
			h.logger.Warnw("register failed", "err", err)
			web.Error(w, http.StatusInternalServerError, "register failed")
		}
		return
	}
	web.WriteJSON(w, http.StatusCreated, map[string]any{"userid": id, "message": "user created successfully"})
}

// Login authenticates form-encoded credentials and returns a bearer token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		web.Error(w, http.StatusBadRequest, "invalid request")
		return
	}
	username := r.Form.Get("username")
	password := r.Form.Get("password")

	u, err := h.users.Repo().GetByUsername(r.Context(), username)
	if err != nil || !user.VerifyPassword(u.PasswordHash, password) || !u.IsActive {
		// same answer for unknown user, bad password and inactive account
		w.Header().Set("WWW-Authenticate", "Bearer")
		web.Error(w, http.StatusUnauthorized, "incorrect username or password")
		return
	}
	token, err := h.issuer.Issue(u.Username)
	if err != nil {
		h.logger.Warnw("token issue failed", "err", err, "username", username)
		web.Error(w, http.StatusInternalServerError, "login failed")
		return
	}
	web.WriteJSON(w, http.StatusOK, map[string]string{
		"access_token": token,
		"token_type":   "bearer",
	})
}
