// Package archive is cold object storage for run documents.
package archive

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

var (
	// ErrInvalidPath is returned for absolute or escaping object paths.
	ErrInvalidPath = errors.New("archive: invalid path")
	// ErrNotFound is returned when reading or deleting a missing object.
	ErrNotFound = errors.New("archive: not found")
)

// Storage defines the interface for cold/archive storage backends
type Storage interface {
	// Write stores data at the given path
	Write(ctx context.Context, path string, data []byte) error

	// Read retrieves data from the given path
	Read(ctx context.Context, path string) ([]byte, error)

	// List returns all paths matching the prefix
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes the data at the given path
	Delete(ctx context.Context, path string) error

	// Exists checks if data exists at the given path
	Exists(ctx context.Context, path string) (bool, error)
}

// Config selects and configures a backend. Type is "local", "s3" or empty
// for no archive.
type Config struct {
	Type string
	Path string
	S3   S3Config
}

// New builds the configured backend. It returns nil, nil when Type is empty.
func New(cfg Config) (Storage, error) {
	switch strings.ToLower(cfg.Type) {
	case "", "none":
		return nil, nil
	case "local", "fs":
		if cfg.Path == "" {
			return nil, fmt.Errorf("archive: local backend needs a path")
		}
		return NewLocalFS(cfg.Path)
	case "s3":
		return NewS3(cfg.S3)
	}
	return nil, fmt.Errorf("archive: unknown type %q", cfg.Type)
}

// cleanPath normalizes an object path to forward slashes without leading
// slash and rejects traversal.
func cleanPath(p string) (string, error) {
	p = strings.ReplaceAll(p, "\\", "/")
	if strings.HasPrefix(p, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	c := path.Clean(p)
	if c == "." || c == ".." || strings.HasPrefix(c, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	return c, nil
}

func contentType(p string) string {
	switch path.Ext(p) {
	case ".json":
		return "application/json"
	case ".yaml", ".yml":
		return "application/yaml"
	case ".parquet":
		return "application/vnd.apache.parquet"
	}
	return "application/octet-stream"
}
