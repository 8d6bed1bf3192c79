package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/edusupervise/supervision-engine/pkg/auth"
	"github.com/edusupervise/supervision-engine/pkg/models"
	"github.com/edusupervise/supervision-engine/pkg/services"
	"github.com/edusupervise/supervision-engine/pkg/validation"
)

// UserListResponse for GET /api/users
type UserListResponse struct {
	Users []*models.User `json:"users"`
	Total int            `json:"total"`
}

// UserHandler handles account administration.
type UserHandler struct {
	users     services.UserService
	validator *validation.Validator
	errs      *ErrorWriter
	logger    *zap.Logger
}

// NewUserHandler creates a new user handler.
func NewUserHandler(users services.UserService, validator *validation.Validator, errs *ErrorWriter, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: users, validator: validator, errs: errs, logger: logger}
}

// RegisterRoutes registers the user handler's routes on the given mux.
func (h *UserHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scope ScopeMiddleware) {
	mux.HandleFunc("GET /api/users", scope(authMiddleware.RequireAuth(h.List)))
	mux.HandleFunc("POST /api/users", scope(authMiddleware.RequireAuth(h.Create)))
	mux.HandleFunc("GET /api/users/{id}", scope(authMiddleware.RequireAuth(h.Get)))
	mux.HandleFunc("PUT /api/users/{id}", scope(authMiddleware.RequireAuth(h.Update)))
	mux.HandleFunc("DELETE /api/users/{id}", scope(authMiddleware.RequireAuth(h.Delete)))
}

// List handles GET /api/users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context(), actorFrom(r))
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	h.errs.JSON(w, http.StatusOK, UserListResponse{Users: users, Total: len(users)})
}

// Get handles GET /api/users/{id}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, h.errs)
	if !ok {
		return
	}

	user, err := h.users.Get(r.Context(), actorFrom(r), id)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	h.errs.JSON(w, http.StatusOK, user)
}

// Create handles POST /api/users
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.CreateUserInput
	if err := DecodeJSON(r, &in, h.validator); err != nil {
		h.errs.Write(w, r, err)
		return
	}

	user, err := h.users.Create(r.Context(), actorFrom(r), in)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	h.errs.JSON(w, http.StatusCreated, user)
}

// Update handles PUT /api/users/{id}
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, h.errs)
	if !ok {
		return
	}

	var in services.UpdateUserInput
	if err := DecodeJSON(r, &in, h.validator); err != nil {
		h.errs.Write(w, r, err)
		return
	}

	user, err := h.users.Update(r.Context(), actorFrom(r), id, in)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	h.errs.JSON(w, http.StatusOK, user)
}

// Delete handles DELETE /api/users/{id}
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, h.errs)
	if !ok {
		return
	}

	if err := h.users.Delete(r.Context(), actorFrom(r), id); err != nil {
		h.errs.Write(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
