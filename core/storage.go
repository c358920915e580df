package core

import (
	"context"
	"io"
)

// FileStorage is any blob store that can save and stream uploaded files by key.
type FileStorage interface {
	Save(ctx context.Context, key string, src io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}
