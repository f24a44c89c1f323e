package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/erp-approvals/internal/application/port"
)

func TestLocalFileStorage_SaveAndRead(t *testing.T) {
	tempDir := t.TempDir()
	fs := NewLocalFileStorage(tempDir, zap.NewNop())
	ctx := context.Background()

	t.Run("saves and reads back", func(t *testing.T) {
		err := fs.Save(ctx, "kim@example.com/req-1/receipt.pdf", []byte("PDF content"), "application/pdf")
		require.NoError(t, err)

		fullPath := filepath.Join(tempDir, "kim@example.com", "req-1", "receipt.pdf")
		assert.FileExists(t, fullPath)

		content, err := fs.Read(ctx, "kim@example.com/req-1/receipt.pdf")
		require.NoError(t, err)
		assert.Equal(t, []byte("PDF content"), content)
		assert.True(t, fs.Exists(ctx, "kim@example.com/req-1/receipt.pdf"))
	})

	t.Run("overwrites existing file", func(t *testing.T) {
		require.NoError(t, fs.Save(ctx, "a/b.txt", []byte("original"), "text/plain"))
		require.NoError(t, fs.Save(ctx, "a/b.txt", []byte("updated"), "text/plain"))

		content, err := os.ReadFile(filepath.Join(tempDir, "a", "b.txt"))
		require.NoError(t, err)
		assert.Equal(t, []byte("updated"), content)

		entries, err := os.ReadDir(filepath.Join(tempDir, "a"))
		require.NoError(t, err)
		assert.Len(t, entries, 1, "no temp files left behind")
	})

	t.Run("missing blob", func(t *testing.T) {
		_, err := fs.Read(ctx, "nobody/none.txt")
		assert.ErrorIs(t, err, port.ErrBlobNotFound)
		assert.False(t, fs.Exists(ctx, "nobody/none.txt"))
	})

	t.Run("directory is not a blob", func(t *testing.T) {
		assert.False(t, fs.Exists(ctx, "a"))
	})
}

func TestLocalFileStorage_Delete(t *testing.T) {
	fs := NewLocalFileStorage(t.TempDir(), zap.NewNop())
	ctx := context.Background()

	require.NoError(t, fs.Save(ctx, "o/1/x.txt", []byte("x"), "text/plain"))
	require.NoError(t, fs.Delete(ctx, "o/1/x.txt"))
	assert.False(t, fs.Exists(ctx, "o/1/x.txt"))

	assert.NoError(t, fs.Delete(ctx, "o/1/x.txt"), "delete is idempotent")
}

func TestLocalFileStorage_PathEscape(t *testing.T) {
	fs := NewLocalFileStorage(t.TempDir(), zap.NewNop())
	ctx := context.Background()

	tests := []string{"../outside.txt", "a/../../outside.txt", "", "."}
	for _, key := range tests {
		t.Run(key, func(t *testing.T) {
			err := fs.Save(ctx, key, []byte("x"), "text/plain")
			assert.ErrorIs(t, err, ErrPathEscape)

			_, err = fs.Read(ctx, key)
			assert.ErrorIs(t, err, ErrPathEscape)

			assert.ErrorIs(t, fs.Delete(ctx, key), ErrPathEscape)
			assert.False(t, fs.Exists(ctx, key))
		})
	}
}
