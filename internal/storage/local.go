package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrS3NotConfigured is returned when S3 operations are attempted
// without proper configuration.
var ErrS3NotConfigured = errors.New("storage: S3 is not configured")

// ErrInvalidName is returned when a report name would escape the storage directory.
var ErrInvalidName = errors.New("storage: invalid name")

// LocalStorage implements the Storage interface using local disk.
// It does not support uploads unless wrapped with S3Storage.
type LocalStorage struct {
	dir string
}

// Verify interface implementation at compile time.
var _ Storage = (*LocalStorage)(nil)

// NewLocalStorage creates a new LocalStorage instance.
// If dir is empty, a "trimsilence" directory under os.TempDir() is used.
// The directory is created if it doesn't exist.
func NewLocalStorage(dir string) (*LocalStorage, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "trimsilence")
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create report directory: %w", err)
	}

	return &LocalStorage{dir: dir}, nil
}

// Dir returns the directory reports are written to.
func (s *LocalStorage) Dir() string {
	return s.dir
}

// Save writes data to dir/name through a temporary file so a partially
// written report never replaces a complete one.
func (s *LocalStorage) Save(ctx context.Context, name string, data io.Reader) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	f, err := os.CreateTemp(s.dir, "."+name+"_*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	tmpName := f.Name()
	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("write report: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("close report: %w", err)
	}

	dest := filepath.Join(s.dir, name)
	if err := os.Rename(tmpName, dest); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("rename report: %w", err)
	}

	return dest, nil
}

// Upload is not supported by LocalStorage and returns ErrS3NotConfigured.
func (s *LocalStorage) Upload(_ context.Context, _ string, _ io.Reader) (string, error) {
	return "", ErrS3NotConfigured
}
