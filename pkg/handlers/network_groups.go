package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/edusupervise/supervision-engine/pkg/auth"
	"github.com/edusupervise/supervision-engine/pkg/models"
	"github.com/edusupervise/supervision-engine/pkg/services"
	"github.com/edusupervise/supervision-engine/pkg/validation"
)

// NetworkGroupListResponse for GET /api/network-groups
type NetworkGroupListResponse struct {
	NetworkGroups []*models.NetworkGroup `json:"networkGroups"`
	Total         int                    `json:"total"`
}

// NetworkGroupHandler handles network group requests.
type NetworkGroupHandler struct {
	groups    services.NetworkGroupService
	validator *validation.Validator
	errs      *ErrorWriter
	logger    *zap.Logger
}

// NewNetworkGroupHandler creates a new network group handler.
func NewNetworkGroupHandler(groups services.NetworkGroupService, validator *validation.Validator, errs *ErrorWriter, logger *zap.Logger) *NetworkGroupHandler {
	return &NetworkGroupHandler{groups: groups, validator: validator, errs: errs, logger: logger}
}

// RegisterRoutes registers the network group handler's routes on the given mux.
func (h *NetworkGroupHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scope ScopeMiddleware) {
	base := "/api/network-groups"

	mux.HandleFunc("GET "+base, scope(authMiddleware.RequireAuth(h.List)))
	mux.HandleFunc("POST "+base, scope(authMiddleware.RequireAuth(h.Create)))
	mux.HandleFunc("GET "+base+"/{id}", scope(authMiddleware.RequireAuth(h.Get)))
	mux.HandleFunc("PUT "+base+"/{id}", scope(authMiddleware.RequireAuth(h.Update)))
	mux.HandleFunc("DELETE "+base+"/{id}", scope(authMiddleware.RequireAuth(h.Delete)))
}

// List handles GET /api/network-groups
func (h *NetworkGroupHandler) List(w http.ResponseWriter, r *http.Request) {
	groups, err := h.groups.List(r.Context(), actorFrom(r))
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	h.errs.JSON(w, http.StatusOK, NetworkGroupListResponse{NetworkGroups: groups, Total: len(groups)})
}

// Get handles GET /api/network-groups/{id}
func (h *NetworkGroupHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, h.errs)
	if !ok {
		return
	}

	group, err := h.groups.Get(r.Context(), actorFrom(r), id)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	h.errs.JSON(w, http.StatusOK, group)
}

// Create handles POST /api/network-groups
func (h *NetworkGroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.NetworkGroupInput
	if err := DecodeJSON(r, &in, h.validator); err != nil {
		h.errs.Write(w, r, err)
		return
	}

	group, err := h.groups.Create(r.Context(), actorFrom(r), in)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	h.errs.JSON(w, http.StatusCreated, group)
}

// Update handles PUT /api/network-groups/{id}
func (h *NetworkGroupHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, h.errs)
	if !ok {
		return
	}

	var in services.NetworkGroupInput
	if err := DecodeJSON(r, &in, h.validator); err != nil {
		h.errs.Write(w, r, err)
		return
	}

	group, err := h.groups.Update(r.Context(), actorFrom(r), id, in)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	h.errs.JSON(w, http.StatusOK, group)
}

// Delete handles DELETE /api/network-groups/{id}
func (h *NetworkGroupHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, h.errs)
	if !ok {
		return
	}

	if err := h.groups.Delete(r.Context(), actorFrom(r), id); err != nil {
		h.errs.Write(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
