// Package storage persists batch reports. It defines the Storage interface
// and implementations for local disk and S3.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
)

// Storage defines where run reports are written.
type Storage interface {
	// Save writes data to a file called name and returns the file path.
	// An existing file with the same name is replaced.
	Save(ctx context.Context, name string, data io.Reader) (path string, err error)

	// Upload uploads data under key and returns the object URL.
	// Returns ErrS3NotConfigured if uploads are not configured.
	Upload(ctx context.Context, key string, data io.Reader) (url string, err error)
}

// Location is where a published report ended up.
type Location struct {
	// Path is the local file path.
	Path string
	// URL is the uploaded object URL, empty when uploads are not configured.
	URL string
}

// Publish saves data locally under name and, when the storage supports it,
// uploads it under the same name.
func Publish(ctx context.Context, s Storage, name string, data []byte) (Location, error) {
	var loc Location

	path, err := s.Save(ctx, name, bytes.NewReader(data))
	if err != nil {
		return loc, fmt.Errorf("save report: %w", err)
	}
	loc.Path = path

	url, err := s.Upload(ctx, name, bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, ErrS3NotConfigured) {
			return loc, nil
		}
		return loc, fmt.Errorf("upload report: %w", err)
	}
	loc.URL = url

	return loc, nil
}
