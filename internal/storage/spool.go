package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// SpoolStore is a filesystem-backed BlobStore for deployments without
// object storage. Keys map to files under the spool directory; writes
// go through a temp file and a rename so the worker never reads a
// half-written upload.
type SpoolStore struct {
	dir string
}

// NewSpoolStore creates the spool directory if needed.
func NewSpoolStore(dir string) (*SpoolStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create spool dir %s: %w", dir, err)
	}
	return &SpoolStore{dir: dir}, nil
}

func (s *SpoolStore) path(key string) (string, error) {
	clean := filepath.Clean(key)
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid spool key %q", key)
	}
	return filepath.Join(s.dir, clean), nil
}

// Put stores the body under key.
func (s *SpoolStore) Put(ctx context.Context, key string, body io.Reader, contentType string) error {
	dst, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create spool subdir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create spool temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write spool file %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close spool file %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("failed to finalize spool file %s: %w", key, err)
	}
	return nil
}

// Get opens the file stored under key.
func (s *SpoolStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	src, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(src)
	if err != nil {
		return nil, fmt.Errorf("failed to open spool file %s: %w", key, err)
	}
	return f, nil
}

// Delete removes the file stored under key. Deleting a missing key is
// not an error.
func (s *SpoolStore) Delete(ctx context.Context, key string) error {
	target, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete spool file %s: %w", key, err)
	}
	return nil
}
