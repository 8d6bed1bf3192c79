package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/edusupervise/supervision-engine/pkg/apperrors"
	"github.com/edusupervise/supervision-engine/pkg/auth"
	"github.com/edusupervise/supervision-engine/pkg/models"
	"github.com/edusupervise/supervision-engine/pkg/services"
	"github.com/edusupervise/supervision-engine/pkg/validation"
)

// ============================================================================
// Request/Response Types
// ============================================================================

// SupervisionListResponse for GET /api/supervisions
type SupervisionListResponse struct {
	Supervisions []*models.Supervision `json:"supervisions"`
	Total        int                   `json:"total"`
}

// ============================================================================
// Handler
// ============================================================================

// SupervisionHandler handles the supervision workflow.
type SupervisionHandler struct {
	supervisions services.SupervisionService
	validator    *validation.Validator
	errs         *ErrorWriter
	logger       *zap.Logger
}

// NewSupervisionHandler creates a new supervision handler.
func NewSupervisionHandler(
	supervisions services.SupervisionService,
	validator *validation.Validator,
	errs *ErrorWriter,
	logger *zap.Logger,
) *SupervisionHandler {
	return &SupervisionHandler{
		supervisions: supervisions,
		validator:    validator,
		errs:         errs,
		logger:       logger,
	}
}

// RegisterRoutes registers the supervision handler's routes on the given mux.
func (h *SupervisionHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scope ScopeMiddleware) {
	base := "/api/supervisions"

	mux.HandleFunc("GET "+base, scope(authMiddleware.RequireAuth(h.List)))
	mux.HandleFunc("POST "+base, scope(authMiddleware.RequireAuth(h.Create)))
	mux.HandleFunc("GET "+base+"/{id}", scope(authMiddleware.RequireAuth(h.Get)))
	mux.HandleFunc("PUT "+base+"/{id}", scope(authMiddleware.RequireAuth(h.Update)))
	mux.HandleFunc("DELETE "+base+"/{id}", scope(authMiddleware.RequireAuth(h.Delete)))
	mux.HandleFunc("POST "+base+"/{id}/approve", scope(authMiddleware.RequireAuth(h.Approve)))
	mux.HandleFunc("POST "+base+"/{id}/acknowledge", scope(authMiddleware.RequireAuth(h.Acknowledge)))
}

// List handles GET /api/supervisions?schoolId=&status=&academicYear=
func (h *SupervisionHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := SupervisionFilter(r)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	items, err := h.supervisions.List(r.Context(), actorFrom(r), filter)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	h.errs.JSON(w, http.StatusOK, SupervisionListResponse{Supervisions: items, Total: len(items)})
}

// SupervisionFilter reads the supervision listing filters from the query string.
func SupervisionFilter(r *http.Request) (services.SupervisionListFilter, error) {
	var filter services.SupervisionListFilter

	schoolID, err := QueryUUID(r, "schoolId")
	if err != nil {
		return filter, err
	}
	filter.SchoolID = schoolID

	if raw := QueryString(r, "status"); raw != nil {
		status := models.SupervisionStatus(*raw)
		if !status.IsValid() {
			return filter, apperrors.NewValidationError("Invalid query parameter", apperrors.FieldError{
				Field: "status", Error: "unknown supervision status",
			})
		}
		filter.Status = &status
	}

	filter.AcademicYear = QueryString(r, "academicYear")
	return filter, nil
}

// Get handles GET /api/supervisions/{id}
func (h *SupervisionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, h.errs)
	if !ok {
		return
	}

	sup, err := h.supervisions.Get(r.Context(), actorFrom(r), id)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	h.errs.JSON(w, http.StatusOK, sup)
}

// Create handles POST /api/supervisions
func (h *SupervisionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.SupervisionInput
	if err := DecodeJSON(r, &in, h.validator); err != nil {
		h.errs.Write(w, r, err)
		return
	}

	sup, err := h.supervisions.Create(r.Context(), actorFrom(r), in)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	h.errs.JSON(w, http.StatusCreated, sup)
}

// Update handles PUT /api/supervisions/{id}
func (h *SupervisionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, h.errs)
	if !ok {
		return
	}

	var in services.SupervisionInput
	if err := DecodeJSON(r, &in, h.validator); err != nil {
		h.errs.Write(w, r, err)
		return
	}

	sup, err := h.supervisions.Update(r.Context(), actorFrom(r), id, in)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	h.errs.JSON(w, http.StatusOK, sup)
}

// Delete handles DELETE /api/supervisions/{id}
func (h *SupervisionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, h.errs)
	if !ok {
		return
	}

	if err := h.supervisions.Delete(r.Context(), actorFrom(r), id); err != nil {
		h.errs.Write(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Approve handles POST /api/supervisions/{id}/approve
func (h *SupervisionHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, h.errs)
	if !ok {
		return
	}

	var in services.ApproveInput
	if err := DecodeJSON(r, &in, h.validator); err != nil {
		h.errs.Write(w, r, err)
		return
	}

	sup, err := h.supervisions.Approve(r.Context(), actorFrom(r), id, in)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	h.errs.JSON(w, http.StatusOK, sup)
}

// Acknowledge handles POST /api/supervisions/{id}/acknowledge
func (h *SupervisionHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, h.errs)
	if !ok {
		return
	}

	var in services.AcknowledgeInput
	if err := DecodeJSON(r, &in, h.validator); err != nil {
		h.errs.Write(w, r, err)
		return
	}

	ack, err := h.supervisions.Acknowledge(r.Context(), actorFrom(r), id, in)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	h.errs.JSON(w, http.StatusCreated, ack)
}
