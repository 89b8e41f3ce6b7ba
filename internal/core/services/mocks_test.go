package services_test

import (
	"context"
	"io"
	"log/slog"

	"github.com/stretchr/testify/mock"

	"github.com/comitanigiacomo/ferienplan-sync/internal/core/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptr[T any](v T) *T {
	return &v
}

type MockOfferRepo struct {
	mock.Mock
}

func (m *MockOfferRepo) Create(ctx context.Context, offer *domain.Offer) error {
	args := m.Called(ctx, offer)
	return args.Error(0)
}

func (m *MockOfferRepo) GetByID(ctx context.Context, id string) (*domain.Offer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Offer), args.Error(1)
}

func (m *MockOfferRepo) Update(ctx context.Context, offer *domain.Offer) error {
	args := m.Called(ctx, offer)
	return args.Error(0)
}

func (m *MockOfferRepo) SetVisibility(ctx context.Context, id string, visible bool) error {
	args := m.Called(ctx, id, visible)
	return args.Error(0)
}

func (m *MockOfferRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOfferRepo) ListByDates(ctx context.Context, dates []string) ([]*domain.Offer, error) {
	args := m.Called(ctx, dates)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Offer), args.Error(1)
}

func (m *MockOfferRepo) ListBefore(ctx context.Context, date string) ([]domain.StaleOffer, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.StaleOffer), args.Error(1)
}

func (m *MockOfferRepo) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockOfferRepo) Sample(ctx context.Context, limit int) ([]*domain.Offer, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Offer), args.Error(1)
}

type MockImageStore struct {
	mock.Mock
}

func (m *MockImageStore) Upload(ctx context.Context, path string, data []byte, opts domain.UploadOptions) error {
	args := m.Called(ctx, path, data, opts)
	return args.Error(0)
}

func (m *MockImageStore) Remove(ctx context.Context, paths []string) error {
	args := m.Called(ctx, paths)
	return args.Error(0)
}

func (m *MockImageStore) PublicURL(path string) string {
	args := m.Called(path)
	return args.String(0)
}

type MockResizer struct {
	mock.Mock
}

func (m *MockResizer) Resize(data []byte, maxWidth, maxHeight, quality int) ([]byte, string, error) {
	args := m.Called(data, maxWidth, maxHeight, quality)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).([]byte), args.String(1), args.Error(2)
}
