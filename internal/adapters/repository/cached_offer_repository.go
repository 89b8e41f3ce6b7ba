package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/comitanigiacomo/ferienplan-sync/internal/core/domain"
)

var _ domain.OfferRepository = (*CachedOfferRepository)(nil)

const (
	DefaultOfferCacheTTL = 30 * time.Second
	offerCachePrefix     = "offers:date:"
)

// CachedOfferRepository caches the per-day offer lists that every reload
// and poll tick reads. Writes go through and drop the affected days.
type CachedOfferRepository struct {
	next   domain.OfferRepository
	cache  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedOfferRepository(next domain.OfferRepository, cache *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedOfferRepository {
	if ttl <= 0 {
		ttl = DefaultOfferCacheTTL
	}
	return &CachedOfferRepository{
		next:   next,
		cache:  cache,
		ttl:    ttl,
		logger: logger.With("component", "offer_cache"),
	}
}

func (r *CachedOfferRepository) cacheKey(date string) string {
	return fmt.Sprintf("%s%s", offerCachePrefix, date)
}

func (r *CachedOfferRepository) invalidate(ctx context.Context, dates ...string) {
	if len(dates) == 0 {
		return
	}
	keys := make([]string, 0, len(dates))
	for _, d := range dates {
		keys = append(keys, r.cacheKey(d))
	}
	if err := r.cache.Del(ctx, keys...).Err(); err != nil {
		r.logger.Warn("Failed to invalidate offer cache", "dates", dates, "error", err)
	}
}

func (r *CachedOfferRepository) invalidateAll(ctx context.Context) {
	iter := r.cache.Scan(ctx, 0, offerCachePrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		r.logger.Warn("Failed to scan offer cache", "error", err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := r.cache.Del(ctx, keys...).Err(); err != nil {
		r.logger.Warn("Failed to flush offer cache", "error", err)
	}
}

func (r *CachedOfferRepository) ListByDates(ctx context.Context, dates []string) ([]*domain.Offer, error) {
	if len(dates) == 0 {
		return []*domain.Offer{}, nil
	}

	sorted := append([]string(nil), dates...)
	sort.Strings(sorted)

	keys := make([]string, len(sorted))
	for i, d := range sorted {
		keys[i] = r.cacheKey(d)
	}

	byDate := make(map[string][]*domain.Offer, len(sorted))
	var missing []string

	vals, err := r.cache.MGet(ctx, keys...).Result()
	if err != nil {
		r.logger.Warn("Redis read error", "error", err)
		missing = sorted
	} else {
		for i, v := range vals {
			s, ok := v.(string)
			if !ok {
				missing = append(missing, sorted[i])
				continue
			}
			var offers []*domain.Offer
			if err := json.Unmarshal([]byte(s), &offers); err != nil {
				r.logger.Warn("Corrupted cache entry, cleaning up key", "key", keys[i])
				r.cache.Del(ctx, keys[i])
				missing = append(missing, sorted[i])
				continue
			}
			byDate[sorted[i]] = offers
		}
	}

	if len(missing) > 0 {
		fresh, err := r.next.ListByDates(ctx, missing)
		if err != nil {
			return nil, err
		}

		for _, d := range missing {
			byDate[d] = []*domain.Offer{}
		}
		for _, o := range fresh {
			byDate[o.Date] = append(byDate[o.Date], o)
		}

		pipe := r.cache.Pipeline()
		for _, d := range missing {
			data, err := json.Marshal(byDate[d])
			if err != nil {
				continue
			}
			pipe.Set(ctx, r.cacheKey(d), data, r.ttl)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			r.logger.Warn("Redis set error", "error", err)
		}
	}

	offers := []*domain.Offer{}
	for _, d := range sorted {
		offers = append(offers, byDate[d]...)
	}
	return offers, nil
}

func (r *CachedOfferRepository) GetByID(ctx context.Context, id string) (*domain.Offer, error) {
	return r.next.GetByID(ctx, id)
}

func (r *CachedOfferRepository) ListBefore(ctx context.Context, date string) ([]domain.StaleOffer, error) {
	return r.next.ListBefore(ctx, date)
}

func (r *CachedOfferRepository) Sample(ctx context.Context, limit int) ([]*domain.Offer, error) {
	return r.next.Sample(ctx, limit)
}

func (r *CachedOfferRepository) Create(ctx context.Context, offer *domain.Offer) error {
	if err := r.next.Create(ctx, offer); err != nil {
		return err
	}
	r.invalidate(ctx, offer.Date)
	return nil
}

func (r *CachedOfferRepository) Update(ctx context.Context, offer *domain.Offer) error {
	if err := r.next.Update(ctx, offer); err != nil {
		return err
	}
	r.invalidate(ctx, offer.Date)
	return nil
}

func (r *CachedOfferRepository) SetVisibility(ctx context.Context, id string, visible bool) error {
	offer, err := r.next.GetByID(ctx, id)
	if err == nil && offer != nil {
		defer r.invalidate(ctx, offer.Date)
	}
	return r.next.SetVisibility(ctx, id, visible)
}

func (r *CachedOfferRepository) Delete(ctx context.Context, id string) error {
	offer, err := r.next.GetByID(ctx, id)
	if err == nil && offer != nil {
		defer r.invalidate(ctx, offer.Date)
	}
	return r.next.Delete(ctx, id)
}

func (r *CachedOfferRepository) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	n, err := r.next.DeleteByIDs(ctx, ids)
	if err != nil {
		return n, err
	}
	if n > 0 {
		r.invalidateAll(ctx)
	}
	return n, nil
}
