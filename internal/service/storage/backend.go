package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Backend writes one object and returns the locator clients use to fetch it.
// Store must not overwrite an existing object.
type Backend interface {
	Store(ctx context.Context, data []byte, name, contentType string) (string, error)
}

// PersistError describes a single failed write.
type PersistError struct {
	Name string
	Err  error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("failed to persist %s: %v", e.Name, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

const maxStemLength = 48

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// PersistedName derives a unique storage name from the uploaded filename:
// a sanitized stem, a random suffix and ext.
func PersistedName(filename, ext string) string {
	base := filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	stem = strings.Trim(unsafeNameChars.ReplaceAllString(stem, "_"), "_")
	if len(stem) > maxStemLength {
		stem = stem[:maxStemLength]
	}
	if stem == "" {
		stem = "image"
	}

	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%s_%s%s", stem, suffix, strings.ToLower(ext))
}
