// Package blob stores uploaded files (avatar images) and hands back public
// URLs. The Store interface is the seam for swapping in an object-storage
// backend; the shipped implementation writes to local disk.
package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

type Store interface {
	// Put writes the blob under name and returns its public URL path.
	Put(ctx context.Context, name string, r io.Reader) (string, error)
}

type DiskStore struct {
	dir     string
	baseURL string
}

// NewDiskStore creates dir if needed. baseURL is the URL prefix the HTTP
// server serves dir under, e.g. "/static/avatars".
func NewDiskStore(dir, baseURL string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	return &DiskStore{dir: dir, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

func (s *DiskStore) Put(ctx context.Context, name string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	// Strip any path components so a crafted name cannot escape the dir.
	name = filepath.Base(filepath.Clean(name))
	if name == "." || name == string(filepath.Separator) {
		return "", fmt.Errorf("invalid blob name %q", name)
	}
	f, err := os.CreateTemp(s.dir, "upload-*")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	if err := os.Rename(f.Name(), filepath.Join(s.dir, name)); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return path.Join(s.baseURL, name), nil
}

// Dir is the directory blobs are written to, for the static file server.
func (s *DiskStore) Dir() string {
	return s.dir
}
