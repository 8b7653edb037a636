package grow

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/duskveil/game-api/internal/session"
	"github.com/duskveil/game-api/internal/web"
)

// Handler exposes HTTP endpoints for grow mode.
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

func parseSessionID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("sid"), 10, 64)
}

// Generate synthesizes (or re-reads) the scenario at a depth.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	sid, err := parseSessionID(r)
	if err != nil {
		web.Error(w, http.StatusBadRequest, "invalid session id")
		return
	}
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.Error(w, http.StatusBadRequest, "invalid payload")
		return
	}
	cur := web.CurrentUser(r.Context())
	rec, err := h.svc.Generate(r.Context(), sid, cur.ID, req)
	if err != nil {
		h.writeServiceError(w, err, "generate scenario")
		return
	}
	web.WriteJSON(w, http.StatusOK, rec)
}

// Get returns a previously generated scenario by depth.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	sid, err := parseSessionID(r)
	if err != nil {
		web.Error(w, http.StatusBadRequest, "invalid session id")
		return
	}
	depth, err := strconv.Atoi(r.PathValue("depth"))
	if err != nil {
		web.Error(w, http.StatusBadRequest, "invalid depth")
		return
	}
	cur := web.CurrentUser(r.Context())
	rec, err := h.svc.Get(r.Context(), sid, cur.ID, depth)
	if err != nil {
		h.writeServiceError(w, err, "get scenario")
		return
	}
	web.WriteJSON(w, http.StatusOK, rec)
}

// Choice records a grow-mode decision.
func (h *Handler) Choice(w http.ResponseWriter, r *http.Request) {
	sid, err := parseSessionID(r)
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

// List returns all generated scenarios of a session.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	sid, err := parseSessionID(r)
	if err != nil {
		web.Error(w, http.StatusBadRequest, "invalid session id")
		return
	}
	cur := web.CurrentUser(r.Context())
	recs, err := h.svc.List(r.Context(), sid, cur.ID)
	if err != nil {
		h.writeServiceError(w, err, "list scenarios")
		return
	}
	web.WriteJSON(w, http.StatusOK, recs)
}

// Status reports completion progress.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	sid, err := parseSessionID(r)
	if err != nil {
		web.Error(w, http.StatusBadRequest, "invalid session id")
		return
	}
	cur := web.CurrentUser(r.Context())
	st, err := h.svc.SessionStatus(r.Context(), sid, cur.ID)
	if err != nil {
		h.writeServiceError(w, err, "session status")
		return
	}
	web.WriteJSON(w, http.StatusOK, st)
}
