package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T, maxBytes int64) *LocalStore {
	t.Helper()
	s := NewLocalStore(t.TempDir(), "/uploads", maxBytes, zap.NewNop())
	s.now = func() time.Time { return time.UnixMilli(1760400000000) }
	return s
}

func TestLocalStore_Store(t *testing.T) {
	s := newTestStore(t, 1024)

	got, err := s.Store(context.Background(), strings.NewReader("report body"), "supervisions", "abc-123", "รายงาน final.pdf")
	require.NoError(t, err)

	assert.Equal(t, "/uploads/supervisions/abc-123/1760400000000-_______final.pdf", got.URL)
	assert.Equal(t, int64(len("report body")), got.Size)

	data, err := os.ReadFile(filepath.Join(s.Root(), "supervisions", "abc-123", "1760400000000-_______final.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "report body", string(data))
}

func TestLocalStore_Defaults(t *testing.T) {
	s := newTestStore(t, 1024)

	got, err := s.Store(context.Background(), strings.NewReader("x"), "", "", "a.png")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/general/temp/1760400000000-a.png", got.URL)
}

func TestLocalStore_NoTraversal(t *testing.T) {
	s := newTestStore(t, 1024)

	got, err := s.Store(context.Background(), strings.NewReader("x"), "../../etc", "..", "../passwd")
	require.NoError(t, err)
	assert.NotContains(t, got.URL, "..")
	assert.True(t, strings.HasPrefix(got.URL, "/uploads/"))
}

func TestLocalStore_TooLarge(t *testing.T) {
	s := newTestStore(t, 4)

	_, err := s.Store(context.Background(), strings.NewReader("12345"), "f", "o", "big.zip")
	assert.ErrorIs(t, err, ErrTooLarge)

	entries, err := os.ReadDir(filepath.Join(s.Root(), "f", "o"))
	require.NoError(t, err)
	assert.Empty(t, entries, "partial upload should be removed")
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "my_file_1_.docx", SanitizeFilename("my file(1).docx"))
	assert.Equal(t, "passwd", SanitizeFilename("../../passwd"))
	assert.Equal(t, "file", SanitizeFilename(""))
}
