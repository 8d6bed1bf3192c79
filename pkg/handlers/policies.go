package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/edusupervise/supervision-engine/pkg/apperrors"
	"github.com/edusupervise/supervision-engine/pkg/auth"
	"github.com/edusupervise/supervision-engine/pkg/models"
	"github.com/edusupervise/supervision-engine/pkg/services"
	"github.com/edusupervise/supervision-engine/pkg/validation"
)

// PolicyListResponse for GET /api/policies
type PolicyListResponse struct {
	Policies []*models.Policy `json:"policies"`
	Total    int              `json:"total"`
}

// PolicyHandler handles policy catalogue requests.
type PolicyHandler struct {
	policies  services.PolicyService
	validator *validation.Validator
	errs      *ErrorWriter
	logger    *zap.Logger
}

// NewPolicyHandler creates a new policy handler.
func NewPolicyHandler(policies services.PolicyService, validator *validation.Validator, errs *ErrorWriter, logger *zap.Logger) *PolicyHandler {
	return &PolicyHandler{policies: policies, validator: validator, errs: errs, logger: logger}
}

// RegisterRoutes registers the policy handler's routes on the given mux.
func (h *PolicyHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scope ScopeMiddleware) {
	base := "/api/policies"

	mux.HandleFunc("GET "+base, scope(authMiddleware.RequireAuth(h.List)))
	mux.HandleFunc("POST "+base, scope(authMiddleware.RequireAuth(h.Create)))
	mux.HandleFunc("GET "+base+"/generate-code", scope(authMiddleware.RequireAuth(h.GenerateCode)))
	mux.HandleFunc("GET "+base+"/{id}", scope(authMiddleware.RequireAuth(h.Get)))
	mux.HandleFunc("PUT "+base+"/{id}", scope(authMiddleware.RequireAuth(h.Update)))
	mux.HandleFunc("DELETE "+base+"/{id}", scope(authMiddleware.RequireAuth(h.Delete)))
}

// List handles GET /api/policies?type=&includeInactive=
func (h *PolicyHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := policyFilter(r)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	policies, err := h.policies.List(r.Context(), actorFrom(r), filter)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	h.errs.JSON(w, http.StatusOK, PolicyListResponse{Policies: policies, Total: len(policies)})
}

func policyFilter(r *http.Request) (services.PolicyListFilter, error) {
	var filter services.PolicyListFilter
	if raw := QueryString(r, "type"); raw != nil {
		t, err := policyType(*raw)
		if err != nil {
			return filter, err
		}
		filter.Type = &t
	}
	if raw := QueryString(r, "includeInactive"); raw != nil {
		include, err := strconv.ParseBool(*raw)
		if err != nil {
			return filter, apperrors.NewValidationError("Invalid query parameter", apperrors.FieldError{
				Field: "includeInactive", Error: "must be true or false",
			})
		}
		filter.IncludeInactive = include
	}
	return filter, nil
}

func policyType(raw string) (models.PolicyType, error) {
	t := models.PolicyType(raw)
	if !t.IsValid() {
		return "", apperrors.NewValidationError("Invalid query parameter", apperrors.FieldError{
			Field: "type", Error: "unknown policy type",
		})
	}
	return t, nil
}

// Get handles GET /api/policies/{id}
func (h *PolicyHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, h.errs)
	if !ok {
		return
	}

	policy, err := h.policies.Get(r.Context(), actorFrom(r), id)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	h.errs.JSON(w, http.StatusOK, policy)
}

// Create handles POST /api/policies
func (h *PolicyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.CreatePolicyInput
	if err := DecodeJSON(r, &in, h.validator); err != nil {
		h.errs.Write(w, r, err)
		return
	}

	policy, err := h.policies.Create(r.Context(), actorFrom(r), in)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	h.errs.JSON(w, http.StatusCreated, policy)
}

// Update handles PUT /api/policies/{id}
func (h *PolicyHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, h.errs)
	if !ok {
		return
	}

	var in services.UpdatePolicyInput
	if err := DecodeJSON(r, &in, h.validator); err != nil {
		h.errs.Write(w, r, err)
		return
	}

	policy, err := h.policies.Update(r.Context(), actorFrom(r), id, in)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	h.errs.JSON(w, http.StatusOK, policy)
}

// Delete handles DELETE /api/policies/{id}
func (h *PolicyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, h.errs)
	if !ok {
		return
	}

	if err := h.policies.Delete(r.Context(), actorFrom(r), id); err != nil {
		h.errs.Write(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GenerateCode handles GET /api/policies/generate-code?type=
func (h *PolicyHandler) GenerateCode(w http.ResponseWriter, r *http.Request) {
	raw := QueryString(r, "type")
	if raw == nil {
		h.errs.BadRequest(w, "validation_error", "type is required")
		return
	}
	t, err := policyType(*raw)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	code, err := h.policies.GenerateCode(r.Context(), actorFrom(r), t)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	h.errs.JSON(w, http.StatusOK, GeneratedCodeResponse{Code: code})
}
