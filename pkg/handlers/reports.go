package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/edusupervise/supervision-engine/pkg/auth"
	"github.com/edusupervise/supervision-engine/pkg/services"
)

// ReportHandler serves CSV exports.
type ReportHandler struct {
	reports services.ReportService
	errs    *ErrorWriter
	logger  *zap.Logger
	now     func() time.Time
}

// NewReportHandler creates a new report handler.
func NewReportHandler(reports services.ReportService, errs *ErrorWriter, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{reports: reports, errs: errs, logger: logger, now: time.Now}
}

// RegisterRoutes registers the report handler's routes on the given mux.
func (h *ReportHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scope ScopeMiddleware) {
	mux.HandleFunc("GET /api/reports/export", scope(authMiddleware.RequireAuth(h.Export)))
}

// Export handles GET /api/reports/export. It accepts the supervision list filters.
// The report is rendered in full before any byte is sent so that failures still
// produce a JSON error.
func (h *ReportHandler) Export(w http.ResponseWriter, r *http.Request) {
	filter, err := SupervisionFilter(r)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	var buf bytes.Buffer
	rows, err := h.reports.ExportSupervisions(r.Context(), actorFrom(r), filter, &buf)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	filename := fmt.Sprintf("supervisions-%s.csv", h.now().Format("20060102"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("X-Total-Count", strconv.Itoa(rows))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Error("Failed to write report", zap.Error(err))
	}
}
