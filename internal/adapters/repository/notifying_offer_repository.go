package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/comitanigiacomo/ferienplan-sync/internal/core/domain"
)

var _ domain.OfferRepository = (*NotifyingOfferRepository)(nil)

// NotifyingOfferRepository announces every successful write through a
// ChangePublisher, for realtime backends the database cannot feed itself.
type NotifyingOfferRepository struct {
	domain.OfferRepository
	publisher domain.ChangePublisher
	table     string
	logger    *slog.Logger
}

func NewNotifyingOfferRepository(next domain.OfferRepository, publisher domain.ChangePublisher, table string, logger *slog.Logger) *NotifyingOfferRepository {
	return &NotifyingOfferRepository{
		OfferRepository: next,
		publisher:       publisher,
		table:           table,
		logger:          logger.With("component", "change_publisher"),
	}
}

func (r *NotifyingOfferRepository) publish(ctx context.Context, typ domain.ChangeType, id, date string) {
	ev := domain.ChangeEvent{
		Table:     r.table,
		Type:      typ,
		OfferID:   id,
		Date:      date,
		Timestamp: time.Now().UTC(),
	}
	if err := r.publisher.Publish(ctx, ev); err != nil {
		r.logger.Warn("Failed to publish change", "type", typ, "offer_id", id, "error", err)
	}
}

func (r *NotifyingOfferRepository) Create(ctx context.Context, offer *domain.Offer) error {
	if err := r.OfferRepository.Create(ctx, offer); err != nil {
		return err
	}
	r.publish(ctx, domain.ChangeInsert, offer.ID, offer.Date)
	return nil
}

func (r *NotifyingOfferRepository) Update(ctx context.Context, offer *domain.Offer) error {
	if err := r.OfferRepository.Update(ctx, offer); err != nil {
		return err
	}
	r.publish(ctx, domain.ChangeUpdate, offer.ID, offer.Date)
	return nil
}

func (r *NotifyingOfferRepository) SetVisibility(ctx context.Context, id string, visible bool) error {
	if err := r.OfferRepository.SetVisibility(ctx, id, visible); err != nil {
		return err
	}
	r.publish(ctx, domain.ChangeUpdate, id, "")
	return nil
}

func (r *NotifyingOfferRepository) Delete(ctx context.Context, id string) error {
	if err := r.OfferRepository.Delete(ctx, id); err != nil {
		return err
	}
	r.publish(ctx, domain.ChangeDelete, id, "")
	return nil
}

func (r *NotifyingOfferRepository) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	n, err := r.OfferRepository.DeleteByIDs(ctx, ids)
	if err != nil {
		return n, err
	}
	for _, id := range ids {
		r.publish(ctx, domain.ChangeDelete, id, "")
	}
	return n, nil
}
