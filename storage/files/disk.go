// Package filestore provides the blob storage backends behind
// core.FileStorage: local disk and S3.
package filestore

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

type diskStorage struct {
	root string
}

var _ core.FileStorage = (*diskStorage)(nil)

// NewDiskStorage stores blobs under root, creating directories on demand.
func NewDiskStorage(root string) *diskStorage {
	return &diskStorage{root: root}
}

func (st *diskStorage) path(key string) string {
	return filepath.Join(st.root, filepath.FromSlash(key))
}

func (st *diskStorage) Save(_ context.Context, key string, src io.Reader) error {
	dst := st.path(key)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return errors.Wrap(err, "creating blob directory")
	}
	file, err := os.Create(dst)
	if err != nil {
		return errors.Wrap(err, "creating blob")
	}
	defer func() { _ = file.Close() }()

	if _, err := io.Copy(file, src); err != nil {
		return errors.Wrap(err, "writing blob")
	}
	return nil
}

func (st *diskStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	file, err := os.Open(st.path(key))
	if err != nil {
		return nil, errors.Wrap(err, "opening blob")
	}
	return file, nil
}

func (st *diskStorage) Delete(_ context.Context, key string) error {
	if err := os.Remove(st.path(key)); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "deleting blob")
	}
	return nil
}
