// Package storage persists uploaded attachment files and hands back the
// public URL they are served from.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// ErrTooLarge is returned when an upload exceeds the configured limit.
var ErrTooLarge = errors.New("file too large")

const (
	defaultFolder = "general"
	defaultOwner  = "temp"
)

var (
	unsafeChars   = regexp.MustCompile(`[^a-zA-Z0-9.-]`)
	unsafeSegment = regexp.MustCompile(`[^a-zA-Z0-9_-]`)
)

// StoredFile describes a file written by a FileStore.
type StoredFile struct {
	URL  string
	Size int64
}

// FileStore accepts file content and returns a retrievable URL.
type FileStore interface {
	Store(ctx context.Context, r io.Reader, folder, ownerID, filename string) (*StoredFile, error)
}

// LocalStore writes files below a directory that is served at a URL prefix.
type LocalStore struct {
	root     string
	prefix   string
	maxBytes int64
	now      func() time.Time
	logger   *zap.Logger
}

// NewLocalStore creates a store rooted at dir and served at publicPrefix.
func NewLocalStore(dir, publicPrefix string, maxBytes int64, logger *zap.Logger) *LocalStore {
	return &LocalStore{
		root:     dir,
		prefix:   publicPrefix,
		maxBytes: maxBytes,
		now:      time.Now,
		logger:   logger.Named("storage"),
	}
}

// Root returns the directory files are written to.
func (s *LocalStore) Root() string {
	return s.root
}

// Store copies r to <root>/<folder>/<ownerID>/<unix-ms>-<sanitized name>.
// Partially written files are removed on failure.
func (s *LocalStore) Store(ctx context.Context, r io.Reader, folder, ownerID, filename string) (*StoredFile, error) {
	folder = pathSegment(folder, defaultFolder)
	ownerID = pathSegment(ownerID, defaultOwner)
	name := strconv.FormatInt(s.now().UnixMilli(), 10) + "-" + SanitizeFilename(filename)

	dir := filepath.Join(s.root, folder, ownerID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	full := filepath.Join(dir, name)
	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload file: %w", err)
	}

	// Read one byte past the limit to detect oversize uploads.
	n, err := io.Copy(f, io.LimitReader(r, s.maxBytes+1))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && n > s.maxBytes {
		err = ErrTooLarge
	}
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		if rmErr := os.Remove(full); rmErr != nil {
			s.logger.Warn("Failed to remove partial upload", zap.String("path", full), zap.Error(rmErr))
		}
		if errors.Is(err, ErrTooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to write upload: %w", err)
	}

	return &StoredFile{
		URL:  path.Join(s.prefix, folder, ownerID, name),
		Size: n,
	}, nil
}

// SanitizeFilename replaces everything outside [a-zA-Z0-9.-] with "_".
func SanitizeFilename(name string) string {
	name = filepath.Base(name)
	if name == "." || name == string(filepath.Separator) || name == "" {
		return "file"
	}
	return unsafeChars.ReplaceAllString(name, "_")
}

// pathSegment reduces a caller supplied directory component to a single safe segment.
func pathSegment(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return unsafeSegment.ReplaceAllString(s, "_")
}

var _ FileStore = (*LocalStore)(nil)
