package filestore

import (
	"context"
	"fmt"

	"github.com/trezcool/darasa/core"
)

// New returns the backend selected by conf.FileStore.Backend.
func New(ctx context.Context, conf *core.Config) (core.FileStorage, error) {
	switch conf.FileStore.Backend {
	case "", "disk":
		return NewDiskStorage(conf.FileStore.Root), nil
	case "s3":
		return NewS3Storage(ctx, conf)
	default:
		return nil, fmt.Errorf("unknown file store backend %q", conf.FileStore.Backend)
	}
}
