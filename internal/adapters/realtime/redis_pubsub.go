package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/comitanigiacomo/ferienplan-sync/internal/core/domain"
)

const redisChannelPrefix = "ferienplan:changes:"

var (
	_ domain.RealtimeClient  = (*RedisPubSub)(nil)
	_ domain.ChangePublisher = (*RedisPubSub)(nil)
)

// RedisPubSub carries change events over Redis pub/sub. Writers publish
// through NotifyingOfferRepository; every process subscribes.
type RedisPubSub struct {
	rdb    *redis.Client
	logger *slog.Logger
}

func NewRedisPubSub(rdb *redis.Client, logger *slog.Logger) *RedisPubSub {
	return &RedisPubSub{
		rdb:    rdb,
		logger: logger.With("component", "redis_realtime"),
	}
}

func redisChannel(table string) string {
	return redisChannelPrefix + table
}

func (p *RedisPubSub) Publish(ctx context.Context, ev domain.ChangeEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal change event: %w", err)
	}
	return p.rdb.Publish(ctx, redisChannel(ev.Table), data).Err()
}

func (p *RedisPubSub) Subscribe(ctx context.Context, name, table string, handlers domain.ChannelHandlers) (domain.Channel, error) {
	logger := p.logger.With("channel", name, "table", table)

	return newChannel(ctx, name, handlers, func(ctx context.Context, ch *channel) {
		ps := p.rdb.Subscribe(ctx, redisChannel(table))
		defer ps.Close()

		var backoff time.Duration
		for {
			msg, err := ps.Receive(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				status := domain.StatusChannelError
				if errors.Is(err, context.DeadlineExceeded) {
					status = domain.StatusTimedOut
				}
				logger.Warn("Realtime receive failed", "status", status, "error", err)
				ch.status(status, err)

				backoff = nextBackoff(backoff)
				if !sleep(ctx, backoff) {
					return
				}
				continue
			}
			backoff = 0

			switch m := msg.(type) {
			case *redis.Subscription:
				if m.Kind == "subscribe" {
					logger.Info("Subscribed", "redis_channel", m.Channel)
					ch.status(domain.StatusSubscribed, nil)
				}
			case *redis.Message:
				var ev domain.ChangeEvent
				if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil {
					logger.Warn("Dropping malformed message", "error", err)
					continue
				}
				ch.change(ev)
			}
		}
	}), nil
}
