package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/comitanigiacomo/ferienplan-sync/internal/core/domain"
)

var _ domain.ImageStore = (*LocalImageStore)(nil)

var ErrInvalidPath = errors.New("invalid object path")

// LocalImageStore keeps images in a directory that the HTTP server exposes
// under baseURL.
type LocalImageStore struct {
	dir     string
	baseURL string
	logger  *slog.Logger
}

func NewLocalImageStore(dir, baseURL string, logger *slog.Logger) (*LocalImageStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}
	return &LocalImageStore{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.With("component", "local_images"),
	}, nil
}

func (s *LocalImageStore) Dir() string {
	return s.dir
}

func (s *LocalImageStore) resolve(path string) (string, error) {
	if path == "" || !filepath.IsLocal(path) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	return filepath.Join(s.dir, filepath.FromSlash(path)), nil
}

func (s *LocalImageStore) Upload(ctx context.Context, path string, data []byte, opts domain.UploadOptions) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create image dir: %w", err)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !opts.Upsert {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}

	f, err := os.OpenFile(full, flags, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return domain.ErrImageExists
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}

	s.logger.Debug("Image stored", "path", full, "bytes", len(data))
	return nil
}

func (s *LocalImageStore) Remove(ctx context.Context, paths []string) error {
	var errs []error
	for _, path := range paths {
		full, err := s.resolve(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("remove %s: %w", path, err))
		}
	}
	return errors.Join(errs...)
}

func (s *LocalImageStore) PublicURL(path string) string {
	return s.baseURL + "/" + path
}
