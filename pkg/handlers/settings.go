package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/edusupervise/supervision-engine/pkg/apperrors"
	"github.com/edusupervise/supervision-engine/pkg/auth"
	"github.com/edusupervise/supervision-engine/pkg/models"
	"github.com/edusupervise/supervision-engine/pkg/services"
)

// SettingListResponse for GET /api/settings
type SettingListResponse struct {
	Settings []*models.Setting `json:"settings"`
}

// PutSettingRequest for PUT /api/settings/{key}
type PutSettingRequest struct {
	Value json.RawMessage `json:"value"`
}

// SettingsHandler handles system settings.
type SettingsHandler struct {
	settings services.SettingsService
	errs     *ErrorWriter
	logger   *zap.Logger
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(settings services.SettingsService, errs *ErrorWriter, logger *zap.Logger) *SettingsHandler {
	return &SettingsHandler{settings: settings, errs: errs, logger: logger}
}

// RegisterRoutes registers the settings handler's routes on the given mux.
func (h *SettingsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scope ScopeMiddleware) {
	mux.HandleFunc("GET /api/settings", scope(authMiddleware.RequireAuth(h.List)))
	mux.HandleFunc("GET /api/settings/{key}", scope(authMiddleware.RequireAuth(h.Get)))
	mux.HandleFunc("PUT /api/settings/{key}", scope(authMiddleware.RequireAuth(h.Put)))
}

// List handles GET /api/settings
func (h *SettingsHandler) List(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.List(r.Context(), actorFrom(r))
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	h.errs.JSON(w, http.StatusOK, SettingListResponse{Settings: settings})
}

// Get handles GET /api/settings/{key}
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	setting, err := h.settings.Get(r.Context(), actorFrom(r), r.PathValue("key"))
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	h.errs.JSON(w, http.StatusOK, setting)
}

// Put handles PUT /api/settings/{key} with body {"value": <any JSON>}.
func (h *SettingsHandler) Put(w http.ResponseWriter, r *http.Request) {
	var req PutSettingRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody)).Decode(&req); err != nil {
		h.errs.Write(w, r, apperrors.NewValidationError("Invalid request body"))
		return
	}
	if len(req.Value) == 0 {
		h.errs.Write(w, r, apperrors.NewValidationError("Invalid request", apperrors.FieldError{
			Field: "value", Error: "value is required",
		}))
		return
	}

	setting, err := h.settings.Put(r.Context(), actorFrom(r), r.PathValue("key"), req.Value)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	h.errs.JSON(w, http.StatusOK, setting)
}
