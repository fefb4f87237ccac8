package storage

import (
	"context"
	"fmt"
	"io/fs"
	"mime"
	"path"
)

// ContentType guesses the MIME type of an asset from its extension.
func ContentType(key string) string {
	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// Sync uploads every regular file in src to s under the same relative key
// and returns the keys written.
func Sync(ctx context.Context, s *Storage, src fs.FS) ([]string, error) {
	if err := s.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket %s: %w", s.Bucket(), err)
	}

	var written []string
	err := fs.WalkDir(src, ".", func(key string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		f, err := src.Open(key)
		if err != nil {
			return err
		}
		defer f.Close()

		if err := s.Put(ctx, key, f, info.Size(), ContentType(key)); err != nil {
			return fmt.Errorf("upload %s: %w", key, err)
		}
		written = append(written, key)
		return nil
	})
	if err != nil {
		return written, err
	}
	return written, nil
}
