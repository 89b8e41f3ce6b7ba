package livesync

import (
	"context"
	"log/slog"

	"github.com/comitanigiacomo/ferienplan-sync/internal/core/domain"
)

type OfferLister interface {
	ListByDates(ctx context.Context, dates []string) ([]*domain.Offer, error)
}

// RecordStore loads the offers of a date window and groups them by day.
type RecordStore struct {
	repo   OfferLister
	logger *slog.Logger
}

func NewRecordStore(repo OfferLister, logger *slog.Logger) *RecordStore {
	return &RecordStore{
		repo:   repo,
		logger: logger.With("component", "record_store"),
	}
}

// Load never fails: a query error is logged and an empty index returned.
// An empty result therefore means "unknown", not "no offers".
func (s *RecordStore) Load(ctx context.Context, dates []string) domain.OfferIndex {
	offers, err := s.repo.ListByDates(ctx, dates)
	if err != nil {
		s.logger.Error("Failed to load offers", "dates", dates, "error", err)
		return domain.OfferIndex{}
	}

	index := domain.GroupByDate(offers)
	s.logger.Debug("Offers loaded", "dates", dates, "count", len(offers))
	return index
}
