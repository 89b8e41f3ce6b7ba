package livesync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/comitanigiacomo/ferienplan-sync/internal/core/domain"
)

type RetentionRepository interface {
	ListBefore(ctx context.Context, date string) ([]domain.StaleOffer, error)
	DeleteByIDs(ctx context.Context, ids []string) (int64, error)
}

type ImageRemover interface {
	Remove(ctx context.Context, paths []string) error
}

type PurgeReport struct {
	Cutoff        string
	Found         int
	RowsDeleted   int64
	ImagesRemoved int
	ImageErrors   error
	Err           error
}

// Retention deletes offers dated before yesterday together with their images.
type Retention struct {
	repo   RetentionRepository
	images ImageRemover
	logger *slog.Logger
}

func NewRetention(repo RetentionRepository, images ImageRemover, logger *slog.Logger) *Retention {
	return &Retention{
		repo:   repo,
		images: images,
		logger: logger.With("component", "retention"),
	}
}

// Purge is best-effort. A failing lookup aborts it, failing image deletes
// are collected and never block the row deletion, a failing row deletion is
// only reported.
func (r *Retention) Purge(ctx context.Context, now time.Time) PurgeReport {
	report := PurgeReport{Cutoff: domain.Yesterday(now)}

	stale, err := r.repo.ListBefore(ctx, report.Cutoff)
	if err != nil {
		report.Err = fmt.Errorf("list stale offers: %w", err)
		r.logger.Error("Retention aborted", "cutoff", report.Cutoff, "error", err)
		return report
	}

	report.Found = len(stale)
	if len(stale) == 0 {
		r.logger.Debug("Nothing to purge", "cutoff", report.Cutoff)
		return report
	}

	ids := make([]string, 0, len(stale))
	var imageErrs []error
	for _, o := range stale {
		ids = append(ids, o.ID)

		if o.ImageURL == nil || *o.ImageURL == "" || r.images == nil {
			continue
		}
		path := domain.ImagePathFromURL(*o.ImageURL)
		if path == "" {
			continue
		}
		if err := r.images.Remove(ctx, []string{path}); err != nil {
			r.logger.Warn("Failed to remove image of stale offer", "offer_id", o.ID, "path", path, "error", err)
			imageErrs = append(imageErrs, fmt.Errorf("offer %s: %w", o.ID, err))
			continue
		}
		report.ImagesRemoved++
	}
	report.ImageErrors = errors.Join(imageErrs...)

	deleted, err := r.repo.DeleteByIDs(ctx, ids)
	if err != nil {
		report.Err = fmt.Errorf("delete stale offers: %w", err)
		r.logger.Error("Failed to delete stale offers", "count", len(ids), "error", err)
		return report
	}
	report.RowsDeleted = deleted

	r.logger.Info("Stale offers purged",
		"cutoff", report.Cutoff,
		"rows", deleted,
		"images_removed", report.ImagesRemoved,
		"image_failures", len(imageErrs))

	return report
}
