package storage

import (
	"context"
	"errors"
	"io"
	"io/fs"

	"github.com/tasklist/apiserver/internal/web"
)

// ErrReadOnly is returned when writing to the embedded store.
var ErrReadOnly = errors.New("embedded assets are read-only")

// EmbeddedStore serves objects from an fs.FS, by default the static assets
// compiled into the binary.
type EmbeddedStore struct {
	fsys fs.FS
}

func NewEmbeddedStore() *EmbeddedStore {
	return &EmbeddedStore{fsys: web.Static()}
}

// NewFSStore serves objects from fsys.
func NewFSStore(fsys fs.FS) *EmbeddedStore {
	return &EmbeddedStore{fsys: fsys}
}

func (e *EmbeddedStore) EnsureBucket(context.Context) error {
	return nil
}

func (e *EmbeddedStore) Put(context.Context, string, io.Reader, int64, string) error {
	return ErrReadOnly
}

func (e *EmbeddedStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	if !fs.ValidPath(key) {
		return nil, ErrObjectNotFound
	}
	f, err := e.fsys.Open(key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, ErrObjectNotFound
	}
	return f, nil
}

func (e *EmbeddedStore) Bucket() string {
	return "embedded"
}
