// Package storage provides ContentStore implementations for uploaded and
// generated images.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var ErrInvalidKey = errors.New("invalid object key")

// LocalStore keeps objects as files under a root directory and serves them
// from PublicBase (for example /uploads).
type LocalStore struct {
	root       string
	publicBase string
}

func NewLocalStore(root, publicBase string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	if publicBase == "" {
		publicBase = "/uploads"
	}
	return &LocalStore{root: root, publicBase: "/" + strings.Trim(publicBase, "/")}, nil
}

// Root is the directory served as static content.
func (s *LocalStore) Root() string { return s.root }

// Put writes r to key. The file appears atomically: it is written to a
// temporary name in the same directory and renamed into place.
func (s *LocalStore) Put(ctx context.Context, key string, r io.Reader, _ string) (string, error) {
	dst, err := s.path(key)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	return s.publicPath(key), nil
}

func (s *LocalStore) Copy(ctx context.Context, src, dst string) (string, error) {
	srcPath, err := s.path(src)
	if err != nil {
		return "", err
	}
	f, err := os.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("copy %s: %w", src, err)
	}
	defer f.Close()
	return s.Put(ctx, dst, f, "")
}

// Delete removes key. A missing object is not an error.
func (s *LocalStore) Delete(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// path maps a slash-separated key to a file under root, refusing anything
// that would escape it.
func (s *LocalStore) path(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || !fs.ValidPath(key) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(s.root, filepath.FromSlash(key)), nil
}

func (s *LocalStore) publicPath(key string) string {
	return path.Join(s.publicBase, key)
}
