package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/edusupervise/supervision-engine/pkg/apperrors"
	"github.com/edusupervise/supervision-engine/pkg/authz"
	"github.com/edusupervise/supervision-engine/pkg/lifecycle"
	"github.com/edusupervise/supervision-engine/pkg/models"
	"github.com/edusupervise/supervision-engine/pkg/storage"
)

// UploadInput is one uploaded file. Content must be positioned at the start.
type UploadInput struct {
	Filename string
	Folder   string
	OwnerID  string
	Size     int64
	Content  io.ReadSeeker
}

// UploadResult is the stored file as reported back to the client, ready to be
// submitted as a supervision attachment.
type UploadResult struct {
	FileURL  string `json:"fileUrl"`
	Filename string `json:"filename"`
	FileType string `json:"fileType"`
	FileSize int64  `json:"fileSize"`
}

// UploadService stores attachment files.
type UploadService interface {
	Upload(ctx context.Context, actor *models.Actor, in UploadInput) (*UploadResult, error)
}

type uploadService struct {
	store    storage.FileStore
	maxBytes int64
	logger   *zap.Logger
}

// NewUploadService creates a new UploadService accepting files up to maxBytes.
func NewUploadService(store storage.FileStore, maxBytes int64, logger *zap.Logger) UploadService {
	return &uploadService{
		store:    store,
		maxBytes: maxBytes,
		logger:   logger.Named("upload-service"),
	}
}

var _ UploadService = (*uploadService)(nil)

func (s *uploadService) Upload(ctx context.Context, actor *models.Actor, in UploadInput) (*UploadResult, error) {
	if err := authz.Check(actor, authz.AttachmentUpload, nil); err != nil {
		return nil, err
	}
	if in.Content == nil {
		return nil, uploadError("No file uploaded")
	}
	if in.Size > s.maxBytes {
		return nil, s.tooLarge()
	}

	ext := strings.ToLower(filepath.Ext(in.Filename))
	if !lifecycle.AllowedExtension(ext) {
		return nil, uploadError(fmt.Sprintf("File type %q is not allowed", ext))
	}
	declared := lifecycle.FileTypeFromURL(in.Filename)

	detected, err := mimetype.DetectReader(in.Content)
	if err != nil {
		return nil, fmt.Errorf("detect file type: %w", err)
	}
	if !matchesDeclared(detected, declared) {
		s.logger.Warn("Upload content does not match extension",
			zap.String("filename", in.Filename),
			zap.String("declared", declared),
			zap.String("detected", detected.String()))
		return nil, uploadError("File content does not match its extension")
	}
	if _, err := in.Content.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind upload: %w", err)
	}

	stored, err := s.store.Store(ctx, in.Content, in.Folder, in.OwnerID, in.Filename)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return nil, s.tooLarge()
		}
		return nil, err
	}

	s.logger.Info("File uploaded",
		zap.String("user_id", actor.ID.String()),
		zap.String("url", stored.URL),
		zap.Int64("size", stored.Size))
	return &UploadResult{
		FileURL:  stored.URL,
		Filename: in.Filename,
		FileType: declared,
		FileSize: stored.Size,
	}, nil
}

// matchesDeclared reports whether the sniffed type, or one of its parents, is
// the type implied by the file extension. Office formats sniff as their
// container (zip or OLE) when the inner document is not recognised.
func matchesDeclared(detected *mimetype.MIME, declared string) bool {
	for m := detected; m != nil; m = m.Parent() {
		if m.Is(declared) {
			return true
		}
		switch {
		case m.Is("application/zip") && strings.Contains(declared, "openxmlformats"):
			return true
		case m.Is("application/x-ole-storage") && isLegacyOffice(declared):
			return true
		}
	}
	return false
}

func isLegacyOffice(declared string) bool {
	switch declared {
	case "application/msword", "application/vnd.ms-excel", "application/vnd.ms-powerpoint":
		return true
	}
	return false
}

func (s *uploadService) tooLarge() error {
	return uploadError(fmt.Sprintf("File size exceeds %dMB", s.maxBytes/(1<<20)))
}

func uploadError(msg string) error {
	return apperrors.NewValidationError(msg, apperrors.FieldError{Field: "file", Error: msg})
}
