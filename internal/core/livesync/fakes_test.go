package livesync

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/comitanigiacomo/ferienplan-sync/internal/core/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeOffers struct {
	mu     sync.Mutex
	rows   []*domain.Offer
	err    error
	calls  atomic.Int32
	failed atomic.Int32
}

func (f *fakeOffers) set(rows ...*domain.Offer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = rows
}

func (f *fakeOffers) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeOffers) ListByDates(ctx context.Context, dates []string) ([]*domain.Offer, error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		f.failed.Add(1)
		return nil, f.err
	}
	var out []*domain.Offer
	for _, o := range f.rows {
		for _, d := range dates {
			if o.Date == d {
				out = append(out, o)
				break
			}
		}
	}
	return out, nil
}

type fakeChannel struct {
	name     string
	handlers domain.ChannelHandlers
	closed   atomic.Bool
}

func (c *fakeChannel) Name() string { return c.name }

func (c *fakeChannel) Close() error {
	c.closed.Store(true)
	return nil
}

func (c *fakeChannel) change(id string) {
	c.handlers.OnChange(domain.ChangeEvent{
		Table:     "offers",
		Type:      domain.ChangeUpdate,
		OfferID:   id,
		Timestamp: time.Now(),
	})
}

func (c *fakeChannel) status(s domain.ChannelStatus) {
	var err error
	if s == domain.StatusChannelError {
		err = errors.New("socket closed")
	}
	c.handlers.OnStatus(s, err)
}

type fakeRealtime struct {
	mu       sync.Mutex
	channels []*fakeChannel
	err      error
}

func (f *fakeRealtime) Subscribe(ctx context.Context, name, table string, handlers domain.ChannelHandlers) (domain.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	ch := &fakeChannel{name: name, handlers: handlers}
	f.channels = append(f.channels, ch)
	return ch, nil
}

func (f *fakeRealtime) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.channels)
}

func (f *fakeRealtime) last() *fakeChannel {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.channels[len(f.channels)-1]
}

type fakeRetentionRepo struct {
	mu        sync.Mutex
	stale     []domain.StaleOffer
	listErr   error
	deleteErr error
	cutoffs   []string
	deleted   [][]string
}

func (f *fakeRetentionRepo) ListBefore(ctx context.Context, date string) ([]domain.StaleOffer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, date)
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.stale, nil
}

func (f *fakeRetentionRepo) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, ids)
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	return int64(len(ids)), nil
}

type fakeImages struct {
	mu      sync.Mutex
	removed []string
	failOn  map[string]bool
}

func (f *fakeImages) Remove(ctx context.Context, paths []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range paths {
		if f.failOn[p] {
			return errors.New("bucket unavailable")
		}
		f.removed = append(f.removed, p)
	}
	return nil
}

type loaderFunc func(ctx context.Context, dates []string) domain.OfferIndex

func (f loaderFunc) Load(ctx context.Context, dates []string) domain.OfferIndex {
	return f(ctx, dates)
}
