package achievement

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/duskveil/game-api/internal/web"
)

// Handler exposes HTTP endpoints for achievements.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// List returns every available achievement.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.List(r.Context())
	if err != nil {
		h.logger.Warnw("list achievements failed", "err", err)
		web.Error(w, http.StatusInternalServerError, "list achievements failed")
		return
	}
	web.WriteJSON(w, http.StatusOK, out)
}

// ForUser returns a player's unlocked achievements.
func (h *Handler) ForUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		web.Error(w, http.StatusBadRequest, "invalid user id")
		return
	}
	out, err := h.svc.ForUser(r.Context(), id)
	if err != nil {
		h.logger.Warnw("user achievements failed", "err", err, "userid", id)
		web.Error(w, http.StatusInternalServerError, "user achievements failed")
		return
	}
	web.WriteJSON(w, http.StatusOK, out)
}
