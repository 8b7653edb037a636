package session

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/duskveil/game-api/internal/web"
)

// Handler exposes HTTP endpoints for play sessions.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// writeServiceError maps session sentinels onto HTTP status codes.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, ErrValidation):
		web.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		web.Error(w, http.StatusNotFound, "session not found")
	case errors.Is(err, ErrNotOwner):
		web.Error(w, http.StatusForbidden, "not authorized")
	case errors.Is(err, ErrCompleted):
		web.Error(w, http.StatusConflict, "session already completed")
	default:
		h.logger.Warnw(op+" failed", "err", err)
		web.Error(w, http.StatusInternalServerError, op+" failed")
	}
}

// CreateRequest starts a session.
type CreateRequest struct {
	Mode       string `json:"mode"`
	ScenarioID *int64 `json:"scenario_id"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.Error(w, http.StatusBadRequest, "invalid payload")
		return
	}
	cur := web.CurrentUser(r.Context())
	sess, err := h.svc.Create(r.Context(), cur.ID, req.Mode, req.ScenarioID)
	if err != nil {
		h.writeServiceError(w, err, "create session")
		return
	}
	web.WriteJSON(w, http.StatusCreated, sess)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		web.Error(w, http.StatusBadRequest, "invalid session id")
		return
	}
	sess, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "get session")
		return
	}
	web.WriteJSON(w, http.StatusOK, sess)
}

// End marks a session ended; is_completed defaults to true.
func (h *Handler) End(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		web.Error(w, http.StatusBadRequest, "invalid session id")
		return
	}
	completed := true
	if v := r.URL.Query().Get("is_completed"); v != "" {
		completed = v == "true" || v == "1"
	}
	cur := web.CurrentUser(r.Context())
	sess, err := h.svc.End(r.Context(), id, cur.ID, completed)
	if err != nil {
		h.writeServiceError(w, err, "end session")
		return
	}
	web.WriteJSON(w, http.StatusOK, sess)
}

// ListByUser returns the caller's sessions, optionally filtered by mode.
func (h *Handler) ListByUser(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		web.Error(w, http.StatusBadRequest, "invalid user id")
		return
	}
	cur := web.CurrentUser(r.Context())
	if cur.ID != userID {
		web.Error(w, http.StatusForbidden, "not authorized")
		return
	}
	sessions, err := h.svc.ListByUser(r.Context(), userID, r.URL.Query().Get("mode"))
	if err != nil {
		h.writeServiceError(w, err, "list sessions")
		return
	}
	web.WriteJSON(w, http.StatusOK, sessions)
}
