package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/edusupervise/supervision-engine/pkg/auth"
	"github.com/edusupervise/supervision-engine/pkg/models"
	"github.com/edusupervise/supervision-engine/pkg/services"
	"github.com/edusupervise/supervision-engine/pkg/validation"
)

// ImprovementListResponse for GET /api/improvements
type ImprovementListResponse struct {
	Improvements []*models.Improvement `json:"improvements"`
	Total        int                   `json:"total"`
}

// ImprovementHandler handles school improvement plans.
type ImprovementHandler struct {
	improvements services.ImprovementService
	validator    *validation.Validator
	errs         *ErrorWriter
	logger       *zap.Logger
}

// NewImprovementHandler creates a new improvement handler.
func NewImprovementHandler(improvements services.ImprovementService, validator *validation.Validator, errs *ErrorWriter, logger *zap.Logger) *ImprovementHandler {
	return &ImprovementHandler{improvements: improvements, validator: validator, errs: errs, logger: logger}
}

// RegisterRoutes registers the improvement handler's routes on the given mux.
func (h *ImprovementHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scope ScopeMiddleware) {
	mux.HandleFunc("GET /api/improvements", scope(authMiddleware.RequireAuth(h.List)))
	mux.HandleFunc("POST /api/improvements", scope(authMiddleware.RequireAuth(h.Create)))
	mux.HandleFunc("PUT /api/improvements/{id}/status", scope(authMiddleware.RequireAuth(h.UpdateStatus)))
}

// List handles GET /api/improvements?schoolId=
func (h *ImprovementHandler) List(w http.ResponseWriter, r *http.Request) {
	schoolID, err := QueryUUID(r, "schoolId")
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	items, err := h.improvements.List(r.Context(), actorFrom(r), schoolID)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	h.errs.JSON(w, http.StatusOK, ImprovementListResponse{Improvements: items, Total: len(items)})
}

// Create handles POST /api/improvements
func (h *ImprovementHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.ImprovementInput
	if err := DecodeJSON(r, &in, h.validator); err != nil {
		h.errs.Write(w, r, err)
		return
	}

	item, err := h.improvements.Create(r.Context(), actorFrom(r), in)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	h.errs.JSON(w, http.StatusCreated, item)
}

// UpdateStatus handles PUT /api/improvements/{id}/status
func (h *ImprovementHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, h.errs)
	if !ok {
		return
	}

	var in services.ImprovementStatusInput
	if err := DecodeJSON(r, &in, h.validator); err != nil {
		h.errs.Write(w, r, err)
		return
	}

	item, err := h.improvements.UpdateStatus(r.Context(), actorFrom(r), id, in)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	h.errs.JSON(w, http.StatusOK, item)
}
