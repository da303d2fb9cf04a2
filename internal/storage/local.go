package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// LocalStore writes uploads to a directory served under urlPrefix
type LocalStore struct {
	dir       string
	urlPrefix string
	logger    *logrus.Logger
}

// NewLocalStore creates dir if needed
func NewLocalStore(dir, urlPrefix string, logger *logrus.Logger) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &LocalStore{dir: dir, urlPrefix: urlPrefix, logger: logger}, nil
}

func (s *LocalStore) Save(ctx context.Context, field, filename string, r io.Reader) (string, error) {
	name, _, err := objectName(field, filename)
	if err != nil {
		return "", err
	}

	dst := filepath.Join(s.dir, name)
	f, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(dst)
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	s.logger.WithFields(logrus.Fields{"file": name, "field": field}).Debug("Stored upload")
	return s.urlPrefix + "/" + name, nil
}

func (s *LocalStore) Delete(_ context.Context, path string) error {
	name, err := storedName(s.urlPrefix, path)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	s.logger.WithField("file", name).Debug("Deleted upload")
	return nil
}
