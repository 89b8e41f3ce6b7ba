package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/comitanigiacomo/ferienplan-sync/internal/core/domain"
)

var _ domain.OfferRepository = (*InMemoryOfferRepository)(nil)

type InMemoryOfferRepository struct {
	store map[string]*domain.Offer

	mu sync.RWMutex
}

func NewInMemoryOfferRepository() *InMemoryOfferRepository {
	return &InMemoryOfferRepository{
		store: make(map[string]*domain.Offer),
	}
}

func (r *InMemoryOfferRepository) Create(ctx context.Context, offer *domain.Offer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.store[offer.ID]; ok {
		return domain.ErrOfferConflict
	}
	clone := *offer
	r.store[offer.ID] = &clone
	return nil
}

func (r *InMemoryOfferRepository) GetByID(ctx context.Context, id string) (*domain.Offer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	offer, ok := r.store[id]
	if !ok {
		return nil, domain.ErrOfferNotFound
	}
	clone := *offer
	return &clone, nil
}

func (r *InMemoryOfferRepository) Update(ctx context.Context, offer *domain.Offer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.store[offer.ID]
	if !ok {
		return domain.ErrOfferNotFound
	}

	clone := *offer
	clone.Date = existing.Date
	clone.CreatedAt = existing.CreatedAt
	r.store[offer.ID] = &clone
	return nil
}

func (r *InMemoryOfferRepository) SetVisibility(ctx context.Context, id string, visible bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	offer, ok := r.store[id]
	if !ok {
		return domain.ErrOfferNotFound
	}
	offer.Visible = visible
	offer.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *InMemoryOfferRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.store[id]; !ok {
		return domain.ErrOfferNotFound
	}

	delete(r.store, id)
	return nil
}

func (r *InMemoryOfferRepository) ListByDates(ctx context.Context, dates []string) ([]*domain.Offer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wanted := make(map[string]bool, len(dates))
	for _, d := range dates {
		wanted[d] = true
	}

	offers := []*domain.Offer{}
	for _, o := range r.store {
		if wanted[o.Date] {
			clone := *o
			offers = append(offers, &clone)
		}
	}

	sort.SliceStable(offers, func(i, j int) bool {
		a, b := offers[i], offers[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		switch {
		case a.Time == nil && b.Time == nil:
			return a.CreatedAt.Before(b.CreatedAt)
		case a.Time == nil:
			return false
		case b.Time == nil:
			return true
		case *a.Time != *b.Time:
			return *a.Time < *b.Time
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})

	return offers, nil
}

func (r *InMemoryOfferRepository) ListBefore(ctx context.Context, date string) ([]domain.StaleOffer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stale := []domain.StaleOffer{}
	for _, o := range r.store {
		if o.Date < date {
			stale = append(stale, domain.StaleOffer{ID: o.ID, ImageURL: o.ImageURL})
		}
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i].ID < stale[j].ID })
	return stale, nil
}

func (r *InMemoryOfferRepository) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, id := range ids {
		if _, ok := r.store[id]; ok {
			delete(r.store, id)
			n++
		}
	}
	return n, nil
}

func (r *InMemoryOfferRepository) Sample(ctx context.Context, limit int) ([]*domain.Offer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	offers := []*domain.Offer{}
	for _, o := range r.store {
		if len(offers) >= limit {
			break
		}
		clone := *o
		offers = append(offers, &clone)
	}
	return offers, nil
}
