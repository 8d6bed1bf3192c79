package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/edusupervise/supervision-engine/pkg/auth"
	"github.com/edusupervise/supervision-engine/pkg/services"
)

// StatsHandler serves the role dashboards and analytics.
type StatsHandler struct {
	stats  services.StatsService
	errs   *ErrorWriter
	logger *zap.Logger
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(stats services.StatsService, errs *ErrorWriter, logger *zap.Logger) *StatsHandler {
	return &StatsHandler{stats: stats, errs: errs, logger: logger}
}

// RegisterRoutes registers the stats handler's routes on the given mux.
func (h *StatsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scope ScopeMiddleware) {
	mux.HandleFunc("GET /api/admin/stats", scope(authMiddleware.RequireAuth(h.Admin)))
	mux.HandleFunc("GET /api/supervisor/stats", scope(authMiddleware.RequireAuth(h.Supervisor)))
	mux.HandleFunc("GET /api/school/stats", scope(authMiddleware.RequireAuth(h.School)))
	mux.HandleFunc("GET /api/analytics", scope(authMiddleware.RequireAuth(h.Analytics)))
}

// Admin handles GET /api/admin/stats
func (h *StatsHandler) Admin(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Admin(r.Context(), actorFrom(r))
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	h.errs.JSON(w, http.StatusOK, stats)
}

// Supervisor handles GET /api/supervisor/stats
func (h *StatsHandler) Supervisor(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Supervisor(r.Context(), actorFrom(r))
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	h.errs.JSON(w, http.StatusOK, stats)
}

// School handles GET /api/school/stats?schoolId=
func (h *StatsHandler) School(w http.ResponseWriter, r *http.Request) {
	schoolID, err := QueryUUID(r, "schoolId")
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	stats, err := h.stats.School(r.Context(), actorFrom(r), schoolID)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	h.errs.JSON(w, http.StatusOK, stats)
}

// Analytics handles GET /api/analytics
func (h *StatsHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	analytics, err := h.stats.Analytics(r.Context(), actorFrom(r))
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	h.errs.JSON(w, http.StatusOK, analytics)
}
