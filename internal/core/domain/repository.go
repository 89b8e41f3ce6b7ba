package domain

import (
	"context"
	"errors"
)

var (
	ErrOfferNotFound = errors.New("offer not found")
	ErrOfferConflict = errors.New("offer already exists")
)

// StaleOffer is the part of an expired offer retention needs to clean up.
type StaleOffer struct {
	ID       string  `db:"id"`
	ImageURL *string `db:"image_url"`
}

type OfferRepository interface {
	// Create persists a new offer.
	Create(ctx context.Context, offer *Offer) error

	// GetByID retrieves an offer by its unique identifier.
	GetByID(ctx context.Context, id string) (*Offer, error)

	// Update overwrites the editable fields and the visibility flag.
	Update(ctx context.Context, offer *Offer) error

	SetVisibility(ctx context.Context, id string, visible bool) error

	// Delete permanently removes an offer.
	Delete(ctx context.Context, id string) error

	// ListByDates returns the offers of the given days ordered by date, then
	// time of day (offers without a time last).
	ListByDates(ctx context.Context, dates []string) ([]*Offer, error)

	// ListBefore returns the offers dated strictly before date.
	ListBefore(ctx context.Context, date string) ([]StaleOffer, error)

	// DeleteByIDs removes all given offers in one statement and reports how
	// many rows were deleted.
	DeleteByIDs(ctx context.Context, ids []string) (int64, error)

	// Sample returns up to limit offers in no particular order. It is the
	// cheapest read the store supports.
	Sample(ctx context.Context, limit int) ([]*Offer, error)
}
