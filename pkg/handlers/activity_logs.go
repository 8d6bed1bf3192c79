package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/edusupervise/supervision-engine/pkg/auth"
	"github.com/edusupervise/supervision-engine/pkg/models"
	"github.com/edusupervise/supervision-engine/pkg/services"
)

// ActivityLogListResponse for GET /api/activity-logs
type ActivityLogListResponse struct {
	Logs []*models.ActivityLog `json:"logs"`
}

// ActivityLogHandler lists the audit trail.
type ActivityLogHandler struct {
	activity services.ActivityLogService
	errs     *ErrorWriter
	logger   *zap.Logger
}

// NewActivityLogHandler creates a new activity log handler.
func NewActivityLogHandler(activity services.ActivityLogService, errs *ErrorWriter, logger *zap.Logger) *ActivityLogHandler {
	return &ActivityLogHandler{activity: activity, errs: errs, logger: logger}
}

// RegisterRoutes registers the activity log handler's routes on the given mux.
func (h *ActivityLogHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scope ScopeMiddleware) {
	mux.HandleFunc("GET /api/activity-logs", scope(authMiddleware.RequireAuth(h.List)))
}

// List handles GET /api/activity-logs?limit=
func (h *ActivityLogHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := QueryInt(r, "limit")
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	logs, err := h.activity.List(r.Context(), actorFrom(r), limit)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	h.errs.JSON(w, http.StatusOK, ActivityLogListResponse{Logs: logs})
}
