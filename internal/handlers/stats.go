package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/producthunt/apiserver/internal/services"
	"go.uber.org/zap"
)

type StatsHandler struct {
	stats  *services.StatsService
	logger *zap.Logger
}

func NewStatsHandler(stats *services.StatsService, logger *zap.Logger) *StatsHandler {
	return &StatsHandler{stats: stats, logger: loggerOrNop(logger)}
}

// AdminRouter registers the admin dashboard routes.
func AdminRouter(r chi.Router, handler *StatsHandler, authn *Authenticator) {
	r.Use(authn.Authenticate, authn.RequireRole(adminRoles...))
	r.Get("/stats", handler.Get)
}

func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Get(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
