// Package storage holds the ImageStore adapters: a Google Cloud Storage
// bucket for deployments and a local directory for development.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/codeGROOVE-dev/retry"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/comitanigiacomo/ferienplan-sync/internal/core/domain"
)

var _ domain.ImageStore = (*GCSImageStore)(nil)

type GCSConfig struct {
	Bucket          string
	BaseURL         string
	CredentialsFile string
	// Endpoint points the client at an emulator such as fake-gcs-server.
	Endpoint string
}

type GCSImageStore struct {
	client  *storage.Client
	bucket  string
	baseURL string
	logger  *slog.Logger
}

// NewGCSClient creates a storage client from cfg. Without credentials and
// endpoint it falls back to application default credentials.
func NewGCSClient(ctx context.Context, cfg GCSConfig) (*storage.Client, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return client, nil
}

func NewGCSImageStore(client *storage.Client, cfg GCSConfig, logger *slog.Logger) *GCSImageStore {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://storage.googleapis.com/" + cfg.Bucket
	}
	return &GCSImageStore{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: base,
		logger:  logger.With("component", "gcs_images", "bucket", cfg.Bucket),
	}
}

func isPreconditionFailed(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusPreconditionFailed
}

func retryOptions(ctx context.Context, logger *slog.Logger, op, path string) []retry.Option {
	return []retry.Option{
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(10 * time.Second),
		retry.MaxJitter(time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			logger.Info("Retrying storage operation after error", "op", op, "attempt", n, "path", path, "error", err)
		}),
	}
}

func (s *GCSImageStore) Upload(ctx context.Context, path string, data []byte, opts domain.UploadOptions) error {
	err := retry.Do(
		func() error {
			obj := s.client.Bucket(s.bucket).Object(path)
			if !opts.Upsert {
				obj = obj.If(storage.Conditions{DoesNotExist: true})
			}

			w := obj.NewWriter(ctx)
			w.ContentType = opts.ContentType
			w.CacheControl = opts.CacheControl

			if _, err := w.Write(data); err != nil {
				_ = w.Close()
				return fmt.Errorf("write object: %w", err)
			}
			if err := w.Close(); err != nil {
				if isPreconditionFailed(err) {
					return retry.Unrecoverable(domain.ErrImageExists)
				}
				return fmt.Errorf("close object writer: %w", err)
			}
			return nil
		},
		retryOptions(ctx, s.logger, "upload", path)...,
	)
	if err != nil {
		if errors.Is(err, domain.ErrImageExists) {
			return domain.ErrImageExists
		}
		return fmt.Errorf("upload %s: %w", path, err)
	}

	s.logger.Info("Image uploaded", "path", path, "bytes", len(data))
	return nil
}

func (s *GCSImageStore) Remove(ctx context.Context, paths []string) error {
	var errs []error
	for _, path := range paths {
		err := retry.Do(
			func() error {
				err := s.client.Bucket(s.bucket).Object(path).Delete(ctx)
				if errors.Is(err, storage.ErrObjectNotExist) {
					return nil
				}
				return err
			},
			retryOptions(ctx, s.logger, "remove", path)...,
		)
		if err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", path, err))
		}
	}
	return errors.Join(errs...)
}

func (s *GCSImageStore) PublicURL(path string) string {
	return s.baseURL + "/" + path
}
