package storage

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/SAP-F-2025/proctor-service/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalBlobStore_Store(t *testing.T) {
	root := t.TempDir()
	store := NewLocalBlobStore(root)

	path, err := store.Store(context.Background(), "selfie_s1_20250101120000.jpeg", []byte("jpeg-bytes"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "selfie_s1_20250101120000.jpeg"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))
}

func TestLocalBlobStore_StaysInsideRoot(t *testing.T) {
	root := t.TempDir()
	store := NewLocalBlobStore(root)

	path, err := store.Store(context.Background(), "../../escape.jpeg", []byte("x"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "escape.jpeg"), path)
}

func TestLocalBlobStore_RejectsEmpty(t *testing.T) {
	store := NewLocalBlobStore(t.TempDir())

	_, err := store.Store(context.Background(), "a.jpeg", nil, "image/jpeg")
	assert.ErrorIs(t, err, ErrEmptyBlob)

	_, err = store.Store(context.Background(), "", []byte("x"), "image/jpeg")
	assert.Error(t, err)
}

func TestNewBlobStore(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := NewBlobStore(context.Background(), config.StorageConfig{Type: "local", LocalPath: t.TempDir()}, logger)
	require.NoError(t, err)
	assert.IsType(t, &LocalBlobStore{}, store)

	_, err = NewBlobStore(context.Background(), config.StorageConfig{Type: "ftp"}, logger)
	assert.Error(t, err)
}
