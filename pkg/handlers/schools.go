package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edusupervise/supervision-engine/pkg/auth"
	"github.com/edusupervise/supervision-engine/pkg/models"
	"github.com/edusupervise/supervision-engine/pkg/services"
	"github.com/edusupervise/supervision-engine/pkg/validation"
)

// ============================================================================
// Request/Response Types
// ============================================================================

// SchoolListResponse for GET /api/schools
type SchoolListResponse struct {
	Schools []*models.School `json:"schools"`
	Total   int              `json:"total"`
}

// AssignSupervisorsRequest for POST /api/admin/schools/{id}/assign-supervisor
type AssignSupervisorsRequest struct {
	SupervisorIDs []uuid.UUID `json:"supervisorIds" validate:"required"`
}

// GeneratedCodeResponse carries a proposed record code.
type GeneratedCodeResponse struct {
	Code string `json:"code"`
}

// ============================================================================
// Handler
// ============================================================================

// SchoolHandler handles school registry requests.
type SchoolHandler struct {
	schools   services.SchoolService
	validator *validation.Validator
	errs      *ErrorWriter
	logger    *zap.Logger
}

// NewSchoolHandler creates a new school handler.
func NewSchoolHandler(schools services.SchoolService, validator *validation.Validator, errs *ErrorWriter, logger *zap.Logger) *SchoolHandler {
	return &SchoolHandler{schools: schools, validator: validator, errs: errs, logger: logger}
}

// RegisterRoutes registers the school handler's routes on the given mux.
func (h *SchoolHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scope ScopeMiddleware) {
	mux.HandleFunc("GET /api/schools", scope(authMiddleware.RequireAuth(h.List)))
	mux.HandleFunc("POST /api/schools", scope(authMiddleware.RequireAuth(h.Create)))
	mux.HandleFunc("GET /api/schools/generate-code", scope(authMiddleware.RequireAuth(h.GenerateCode)))
	mux.HandleFunc("GET /api/schools/{id}", scope(authMiddleware.RequireAuth(h.Get)))
	mux.HandleFunc("PUT /api/schools/{id}", scope(authMiddleware.RequireAuth(h.Update)))
	mux.HandleFunc("DELETE /api/schools/{id}", scope(authMiddleware.RequireAuth(h.Delete)))
	mux.HandleFunc("POST /api/admin/schools/{id}/assign-supervisor", scope(authMiddleware.RequireAuth(h.AssignSupervisors)))
}

// List handles GET /api/schools
func (h *SchoolHandler) List(w http.ResponseWriter, r *http.Request) {
	schools, err := h.schools.List(r.Context(), actorFrom(r))
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	h.errs.JSON(w, http.StatusOK, SchoolListResponse{Schools: schools, Total: len(schools)})
}

// Get handles GET /api/schools/{id}
func (h *SchoolHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, h.errs)
	if !ok {
		return
	}

	school, err := h.schools.Get(r.Context(), actorFrom(r), id)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	h.errs.JSON(w, http.StatusOK, school)
}

// Create handles POST /api/schools
func (h *SchoolHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.SchoolInput
	if err := DecodeJSON(r, &in, h.validator); err != nil {
		h.errs.Write(w, r, err)
		return
	}

	school, err := h.schools.Create(r.Context(), actorFrom(r), in)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	h.errs.JSON(w, http.StatusCreated, school)
}

// Update handles PUT /api/schools/{id}
func (h *SchoolHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, h.errs)
	if !ok {
		return
	}

	var in services.SchoolInput
	if err := DecodeJSON(r, &in, h.validator); err != nil {
		h.errs.Write(w, r, err)
		return
	}

	school, err := h.schools.Update(r.Context(), actorFrom(r), id, in)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	h.errs.JSON(w, http.StatusOK, school)
}

// Delete handles DELETE /api/schools/{id}
func (h *SchoolHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, h.errs)
	if !ok {
		return
	}

	if err := h.schools.Delete(r.Context(), actorFrom(r), id); err != nil {
		h.errs.Write(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GenerateCode handles GET /api/schools/generate-code
func (h *SchoolHandler) GenerateCode(w http.ResponseWriter, r *http.Request) {
	code, err := h.schools.GenerateCode(r.Context(), actorFrom(r))
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	h.errs.JSON(w, http.StatusOK, GeneratedCodeResponse{Code: code})
}

// AssignSupervisors handles POST /api/admin/schools/{id}/assign-supervisor
func (h *SchoolHandler) AssignSupervisors(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, h.errs)
	if !ok {
		return
	}

	var req AssignSupervisorsRequest
	if err := DecodeJSON(r, &req, h.validator); err != nil {
		h.errs.Write(w, r, err)
		return
	}

	school, err := h.schools.AssignSupervisors(r.Context(), actorFrom(r), id, req.SupervisorIDs)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	h.errs.JSON(w, http.StatusOK, school)
}
