package analytics

import (
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/duskveil/game-api/internal/session"
	"github.com/duskveil/game-api/internal/web"
)

// Handler exposes the analytics endpoints.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, session.ErrNotFound):
		web.Error(w, http.StatusNotFound, "not found")
	case errors.Is(err, session.ErrNotOwner):
		web.Error(w, http.StatusForbidden, "not authorized")
	default:
		h.logger.Warnw(op+" failed", "err", err)
		web.Error(w, http.StatusInternalServerError, op+" failed")
	}
}

// UserStats serves a user's aggregated play statistics.
func (h *Handler) UserStats(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		web.Error(w, http.StatusBadRequest, "invalid user id")
		return
	}
	stats, err := h.svc.UserStats(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err, "user stats")
		return
	}
	web.WriteJSON(w, http.StatusOK, stats)
}

// Leaderboard ranks players by games played.
func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	entries, err := h.svc.Leaderboard(r.Context(), limit)
	if err != nil {
		h.writeServiceError(w, err, "leaderboard")
		return
	}
	web.WriteJSON(w, http.StatusOK, entries)
}

// ChoiceDistribution buckets recorded choices, optionally for one scenario.
func (h *Handler) ChoiceDistribution(w http.ResponseWriter, r *http.Request) {
	var scenarioID *int64
	if v := r.URL.Query().Get("scenario_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			web.Error(w, http.StatusBadRequest, "invalid scenario id")
			return
		}
		scenarioID = &id
	}
	buckets, err := h.svc.ChoiceDistribution(r.Context(), scenarioID)
	if err != nil {
		h.writeServiceError(w, err, "choice distribution")
		return
	}
	web.WriteJSON(w, http.StatusOK, buckets)
}

// SessionSummary aggregates a single session for its owner.
func (h *Handler) SessionSummary(w http.ResponseWriter, r *http.Request) {
	sessionID, err := strconv.ParseInt(r.PathValue("sid"), 10, 64)
	if err != nil {
		web.Error(w, http.StatusBadRequest, "invalid session id")
		return
	}
	cur := web.CurrentUser(r.Context())
	summary, err := h.svc.SessionSummary(r.Context(), sessionID, cur.ID)
	if err != nil {
		h.writeServiceError(w, err, "session summary")
		return
	}
	web.WriteJSON(w, http.StatusOK, summary)
}

// Progression serves the caller's trait timeline across completed sessions.
func (h *Handler) Progression(w http.ResponseWriter, r *http.Request) {
	cur := web.CurrentUser(r.Context())
	userID := cur.ID
	if v := r.URL.Query().Get("user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			web.Error(w, http.StatusBadRequest, "invalid user id")
			return
		}
		if id != cur.ID {
			web.Error(w, http.StatusForbidden, "not authorized")
			return
		}
		userID = id
	}
	points, err := h.svc.Progression(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err, "trait progression")
		return
	}
	web.WriteJSON(w, http.StatusOK, points)
}
