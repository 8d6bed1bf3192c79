package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/edusupervise/supervision-engine/pkg/apperrors"
	"github.com/edusupervise/supervision-engine/pkg/auth"
	"github.com/edusupervise/supervision-engine/pkg/services"
)

// multipartOverhead is the allowance for form fields and boundaries on top of the file itself.
const multipartOverhead = 1 << 20

// UploadHandler handles attachment uploads.
type UploadHandler struct {
	uploads  services.UploadService
	maxBytes int64
	errs     *ErrorWriter
	logger   *zap.Logger
}

// NewUploadHandler creates a new upload handler accepting files up to maxBytes.
func NewUploadHandler(uploads services.UploadService, maxBytes int64, errs *ErrorWriter, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{uploads: uploads, maxBytes: maxBytes, errs: errs, logger: logger}
}

// RegisterRoutes registers the upload handler's routes on the given mux.
func (h *UploadHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scope ScopeMiddleware) {
	mux.HandleFunc("POST /api/upload", scope(authMiddleware.RequireAuth(h.Upload)))
}

// Upload handles POST /api/upload with multipart fields file, folder and id.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
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

	result, err := h.uploads.Upload(r.Context(), actorFrom(r), services.UploadInput{
		Filename: header.Filename,
		Folder:   r.FormValue("folder"),
		OwnerID:  r.FormValue("id"),
		Size:     header.Size,
		Content:  file,
	})
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	h.errs.JSON(w, http.StatusOK, result)
}
