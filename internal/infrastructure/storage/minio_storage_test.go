package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/erp-approvals/internal/application/port"
)

type mockObjects struct {
	PutFunc    func(ctx context.Context, bucket, key string, content []byte, contentType string) error
	GetFunc    func(ctx context.Context, bucket, key string) ([]byte, error)
	StatFunc   func(ctx context.Context, bucket, key string) error
	RemoveFunc func(ctx context.Context, bucket, key string) error
}

func (m *mockObjects) Put(ctx context.Context, bucket, key string, content []byte, contentType string) error {
	return m.PutFunc(ctx, bucket, key, content, contentType)
}

func (m *mockObjects) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	return m.GetFunc(ctx, bucket, key)
}

func (m *mockObjects) Stat(ctx context.Context, bucket, key string) error {
	return m.StatFunc(ctx, bucket, key)
}

func (m *mockObjects) Remove(ctx context.Context, bucket, key string) error {
	return m.RemoveFunc(ctx, bucket, key)
}

func TestMinioStorage_Save(t *testing.T) {
	var gotBucket, gotKey, gotType string
	var gotContent []byte
	objects := &mockObjects{
		PutFunc: func(_ context.Context, bucket, key string, content []byte, contentType string) error {
			gotBucket, gotKey, gotContent, gotType = bucket, key, content, contentType
			return nil
		},
	}
	s := newMinioStorage(objects, "attachments", zap.NewNop())

	require.NoError(t, s.Save(context.Background(), "kim/1/a.pdf", []byte("%PDF"), "application/pdf"))
	assert.Equal(t, "attachments", gotBucket)
	assert.Equal(t, "kim/1/a.pdf", gotKey)
	assert.Equal(t, []byte("%PDF"), gotContent)
	assert.Equal(t, "application/pdf", gotType)

	objects.PutFunc = func(context.Context, string, string, []byte, string) error { return errors.New("503") }
	assert.Error(t, s.Save(context.Background(), "kim/1/a.pdf", []byte("x"), ""))
}

func TestMinioStorage_Read(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
		err     error
		wantIs  error
	}{
		{name: "found", content: []byte("data")},
		{name: "no such key", err: minio.ErrorResponse{Code: "NoSuchKey", Message: "missing"}, wantIs: port.ErrBlobNotFound},
		{name: "other failure", err: errors.New("timeout")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newMinioStorage(&mockObjects{
				GetFunc: func(context.Context, string, string) ([]byte, error) { return tt.content, tt.err },
			}, "attachments", zap.NewNop())

			got, err := s.Read(context.Background(), "k")
			switch {
			case tt.err == nil:
				require.NoError(t, err)
				assert.Equal(t, tt.content, got)
			case tt.wantIs != nil:
				assert.ErrorIs(t, err, tt.wantIs)
			default:
				require.Error(t, err)
				assert.NotErrorIs(t, err, port.ErrBlobNotFound)
			}
		})
	}
}

func TestMinioStorage_ExistsAndDelete(t *testing.T) {
	present := map[string]bool{"k": true}
	s := newMinioStorage(&mockObjects{
		StatFunc: func(_ context.Context, _ string, key string) error {
			if present[key] {
				return nil
			}
			return minio.ErrorResponse{Code: "NoSuchKey"}
		},
		RemoveFunc: func(_ context.Context, _ string, key string) error {
			delete(present, key)
			return nil
		},
	}, "attachments", zap.NewNop())
	ctx := context.Background()

	assert.True(t, s.Exists(ctx, "k"))
	require.NoError(t, s.Delete(ctx, "k"))
	assert.False(t, s.Exists(ctx, "k"))
	require.NoError(t, s.Delete(ctx, "k"))
}
