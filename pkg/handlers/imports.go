package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/edusupervise/supervision-engine/pkg/apperrors"
	"github.com/edusupervise/supervision-engine/pkg/auth"
	"github.com/edusupervise/supervision-engine/pkg/models"
	"github.com/edusupervise/supervision-engine/pkg/services"
)

// ImportHandler handles bulk data imports.
type ImportHandler struct {
	imports  services.ImportService
	maxBytes int64
	errs     *ErrorWriter
	logger   *zap.Logger
}

// NewImportHandler creates a new import handler accepting files up to maxBytes.
func NewImportHandler(imports services.ImportService, maxBytes int64, errs *ErrorWriter, logger *zap.Logger) *ImportHandler {
	return &ImportHandler{imports: imports, maxBytes: maxBytes, errs: errs, logger: logger}
}

// RegisterRoutes registers the import handler's routes on the given mux.
func (h *ImportHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scope ScopeMiddleware) {
	mux.HandleFunc("POST /api/admin/import", scope(authMiddleware.RequireAuth(h.Import)))
}

// Import handles POST /api/admin/import with multipart fields file and type.
func (h *ImportHandler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			h.errs.Write(w, r, apperrors.NewValidationError(fmt.Sprintf("File size exceeds %dMB", h.maxBytes/(1<<20))))
			return
		}
		h.errs.Write(w, r, apperrors.NewValidationError("Invalid multipart form"))
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			h.logger.Warn("Failed to remove multipart temp files", zap.Error(err))
		}
	}()

	kind := models.ImportKind(r.FormValue("type"))
	if kind == "" {
		h.errs.Write(w, r, apperrors.NewValidationError("Missing import type", apperrors.FieldError{
			Field: "type", Error: "type is required",
		}))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			h.errs.Write(w, r, apperrors.NewValidationError("No file uploaded"))
			return
		}
		h.errs.Write(w, r, apperrors.NewValidationError("Invalid multipart form"))
		return
	}
	defer file.Close()

	result, err := h.imports.Import(r.Context(), actorFrom(r), kind, header.Filename, file)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	h.errs.JSON(w, http.StatusOK, result)
}
