package user

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/duskveil/game-api/internal/trait"
	"github.com/duskveil/game-api/internal/web"
)

// Handler exposes HTTP endpoints for player profiles.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(db *sqlx.DB, svc *Service, logger *zap.SugaredLogger) *Handler {
	if svc == nil {
		svc = NewService(db, nil)
	}
	return &Handler{svc: svc, logger: logger}
}

// Me returns the authenticated player.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	web.WriteJSON(w, http.StatusOK, web.CurrentUser(r.Context()))
}

// Get returns a player by id.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		web.Error(w, http.StatusBadRequest, "invalid user id")
		return
	}
	u, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			web.Error(w, http.StatusNotFound, "user not found")
			return
		}
		h.logger.Warnw("get user failed", "err", err, "userid", id)
		web.Error(w, http.StatusInternalServerError, "get user failed")
		return
	}
	web.WriteJSON(w, http.StatusOK, u)
}

// UpdateRequest patches email and/or trait profile.
type UpdateRequest struct {
	Email        *string       `json:"email"`
	TraitProfile trait.Profile `json:"trait_profile"`
}

// Update patches the player's own profile.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		web.Error(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if cur := web.CurrentUser(r.Context()); cur == nil || cur.ID != id {
		web.Error(w, http.StatusForbidden, "not authorized to update this user")
		return
	}
	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.Error(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := h.svc.Update(r.Context(), id, req.Email, req.TraitProfile); err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			web.Error(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrNotFound):
			web.Error(w, http.StatusNotFound, "user not found")
		default:
			h.logger.Warnw("update user failed", "err", err, "userid", id)
			web.Error(w, http.StatusInternalServerError, "update failed")
		}
		return
	}
	web.WriteJSON(w, http.StatusOK, map[string]string{"message": "user updated"})
}

// Delete soft-deactivates the player's own account.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		web.Error(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if cur := web.CurrentUser(r.Context()); cur == nil || cur.ID != id {
		web.Error(w, http.StatusForbidden, "not authorized to delete this user")
		return
	}
	if err := h.svc.Deactivate(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			web.Error(w, http.StatusNotFound, "user not found")
			return
		}
		h.logger.Warnw("deactivate user failed", "err", err, "userid", id)
		web.Error(w, http.StatusInternalServerError, "delete failed")
		return
	}
	web.WriteJSON(w, http.StatusOK, map[string]string{"message": "user deactivated"})
}

// List returns active users with skip/limit pagination.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	users, err := h.svc.ListActive(r.Context(), skip, limit)
	if err != nil {
		h.logger.Warnw("list users failed", "err", err)
		web.Error(w, http.StatusInternalServerError, "list users failed")
		return
	}
	web.WriteJSON(w, http.StatusOK, users)
}
