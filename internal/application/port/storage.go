package port

import (
	"context"
	"errors"
)

// ErrBlobNotFound is returned by FileStorage.Read for a missing key
var ErrBlobNotFound = errors.New("blob not found")

// FileStorage stores attachment blobs by key
type FileStorage interface {
	Save(ctx context.Context, key string, content []byte, contentType string) error
	Read(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) bool
	Delete(ctx context.Context, key string) error
}
