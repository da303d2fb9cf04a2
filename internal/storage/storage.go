// Package storage keeps uploaded images and returns the path clients fetch them from.
package storage

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/Dan9191/adboard/internal/utils"
)

var (
	// ErrUnsupportedType is returned for uploads that are not images
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrForeignPath is returned when deleting a path this store did not hand out
	ErrForeignPath = errors.New("path not owned by store")
)

var imageTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// FileStore accepts an uploaded file and returns a stable public path for
// it. Delete removes a file by the path Save returned.
type FileStore interface {
	Save(ctx context.Context, field, filename string, r io.Reader) (string, error)
	Delete(ctx context.Context, path string) error
}

// objectName builds a collision free name such as "image-01HX...png" and
// rejects extensions that are not images.
func objectName(field, filename string) (name, contentType string, err error) {
	ext := strings.ToLower(filepath.Ext(filename))
	contentType, ok := imageTypes[ext]
	if !ok {
		return "", "", ErrUnsupportedType
	}
	if field == "" {
		field = "file"
	}
	return field + "-" + strings.ToLower(utils.NewID()) + ext, contentType, nil
}

// storedName recovers the object name from a public path under prefix
func storedName(prefix, path string) (string, error) {
	name, ok := strings.CutPrefix(path, prefix+"/")
	if !ok || name == "" || strings.ContainsAny(name, `/\`) {
		return "", ErrForeignPath
	}
	return name, nil
}
