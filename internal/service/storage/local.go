package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalBackend stores objects in a directory served under baseURL.
type LocalBackend struct {
	dir     string
	baseURL string
}

// NewLocalBackend creates dir if needed.
func NewLocalBackend(dir, baseURL string) (*LocalBackend, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &LocalBackend{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// Store writes data to dir/name. It fails if name already exists.
func (b *LocalBackend) Store(ctx context.Context, data []byte, name, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if name == "" || name != filepath.Base(name) {
		return "", fmt.Errorf("invalid object name %q", name)
	}

	path := filepath.Join(b.dir, name)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to close %s: %w", path, err)
	}

	return b.baseURL + "/" + name, nil
}

// Dir is the directory objects are written to.
func (b *LocalBackend) Dir() string {
	return b.dir
}

// PathFor maps a locator produced by Store back to its file. ok is false for
// locators that do not belong to this backend.
func (b *LocalBackend) PathFor(locator string) (string, bool) {
	name, found := strings.CutPrefix(locator, b.baseURL+"/")
	if !found || name == "" || name != filepath.Base(name) {
		return "", false
	}
	return filepath.Join(b.dir, name), true
}
