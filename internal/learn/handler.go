package learn

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/duskveil/game-api/internal/session"
	"github.com/duskveil/game-api/internal/web"
)

// Handler exposes HTTP endpoints for learn mode.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, session.ErrValidation):
		web.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		web.Error(w, http.StatusNotFound, "scenario not found")
	case errors.Is(err, session.ErrNotFound):
		web.Error(w, http.StatusNotFound, "session not found")
	case errors.Is(err, session.ErrNotOwner):
		web.Error(w, http.StatusForbidden, "not authorized")
	case errors.Is(err, session.ErrCompleted):
		web.Error(w, http.StatusConflict, "session already completed")
	default:
		h.logger.Warnw(op+" failed", "err", err)
		web.Error(w, http.StatusInternalServerError, op+" failed")
	}
}

// List returns all authored scenario ids.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	scenarios, err := h.svc.List(r.Context())
	if err != nil {
		h.logger.Warnw("list scenarios failed", "err", err)
		web.Error(w, http.StatusInternalServerError, "list scenarios failed")
		return
	}
	web.WriteJSON(w, http.StatusOK, scenarios)
}

// Start returns the root node of the session's scenario.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	sid, err := strconv.ParseInt(r.PathValue("sid"), 10, 64)
	if err != nil {
		web.Error(w, http.StatusBadRequest, "invalid session id")
		return
	}
	cur := web.CurrentUser(r.Context())
	node, err := h.svc.NodeAtPath(r.Context(), sid, cur.ID, "")
	if err != nil {
		h.writeServiceError(w, err, "start scenario")
		return
	}
	web.WriteJSON(w, http.StatusOK, node)
}

// PathRequest addresses a node by the choice ids taken so far, e.g. "AB".
type PathRequest struct {
	Path string `json:"path"`
}

// ByPath returns the node reached by a sequence of prior choice ids.
func (h *Handler) ByPath(w http.ResponseWriter, r *http.Request) {
	sid, err := strconv.ParseInt(r.PathValue("sid"), 10, 64)
	if err != nil {
		web.Error(w, http.StatusBadRequest, "invalid session id")
		return
	}
	var req PathRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.Error(w, http.StatusBadRequest, "invalid payload")
		return
	}
	cur := web.CurrentUser(r.Context())
	node, err := h.svc.NodeAtPath(r.Context(), sid, cur.ID, req.Path)
	if err != nil {
		h.writeServiceError(w, err, "scenario by path")
		return
	}
	web.WriteJSON(w, http.StatusOK, node)
}

// Choice records a decision in a learn session.
func (h *Handler) Choice(w http.ResponseWriter, r *http.Request) {
	sid, err := strconv.ParseInt(r.PathValue("sid"), 10, 64)
	if err != nil {
		web.Error(w, http.StatusBadRequest, "invalid session id")
		return
	}
	var in session.ChoiceInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		web.Error(w, http.StatusBadRequest, "invalid payload")
		return
	}
	cur := web.CurrentUser(r.Context())
	choice, completed, err := h.svc.RecordChoice(r.Context(), sid, cur.ID, in)
	if err != nil {
		h.writeServiceError(w, err, "record choice")
		return
	}
	web.WriteJSON(w, http.StatusOK, map[string]any{
		"message":           "choice recorded",
		"choice":            choice,
		"session_completed": completed,
	})
}
