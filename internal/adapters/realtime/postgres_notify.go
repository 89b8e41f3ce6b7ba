package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"

	"github.com/comitanigiacomo/ferienplan-sync/internal/core/domain"
)

const (
	DefaultNotifyChannel  = "offers_changes"
	DefaultConnectTimeout = 10 * time.Second
)

var _ domain.RealtimeClient = (*PostgresNotifyClient)(nil)

// PostgresNotifyClient delivers row changes published by the offers_notify
// trigger through LISTEN/NOTIFY. Each channel holds one dedicated
// connection and reconnects with backoff after failures.
type PostgresNotifyClient struct {
	dsn            string
	notifyChannel  string
	connectTimeout time.Duration
	logger         *slog.Logger
}

func NewPostgresNotifyClient(dsn string, logger *slog.Logger) *PostgresNotifyClient {
	return &PostgresNotifyClient{
		dsn:            dsn,
		notifyChannel:  DefaultNotifyChannel,
		connectTimeout: DefaultConnectTimeout,
		logger:         logger.With("component", "pg_realtime"),
	}
}

func (c *PostgresNotifyClient) Subscribe(ctx context.Context, name, table string, handlers domain.ChannelHandlers) (domain.Channel, error) {
	logger := c.logger.With("channel", name, "table", table)

	return newChannel(ctx, name, handlers, func(ctx context.Context, ch *channel) {
		var backoff time.Duration
		for {
			err := c.listen(ctx, table, ch, logger)
			if ctx.Err() != nil {
				return
			}

			status := domain.StatusChannelError
			if errors.Is(err, context.DeadlineExceeded) {
				status = domain.StatusTimedOut
			}
			logger.Warn("Realtime connection lost", "status", status, "error", err)
			ch.status(status, err)

			backoff = nextBackoff(backoff)
			if !sleep(ctx, backoff) {
				return
			}
		}
	}), nil
}

func (c *PostgresNotifyClient) listen(ctx context.Context, table string, ch *channel, logger *slog.Logger) error {
	connectCtx, cancel := context.WithTimeout(ctx, c.connectTimeout)
	defer cancel()

	conn, err := pgx.Connect(connectCtx, c.dsn)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(connectCtx, "LISTEN "+pq.QuoteIdentifier(c.notifyChannel)); err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	logger.Info("Listening for changes", "notify_channel", c.notifyChannel)
	ch.status(domain.StatusSubscribed, nil)

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}

		ev, err := parseNotification(n.Payload)
		if err != nil {
			logger.Warn("Dropping malformed notification", "payload", n.Payload, "error", err)
			continue
		}
		if table != "" && ev.Table != table {
			continue
		}
		ch.change(ev)
	}
}

func parseNotification(payload string) (domain.ChangeEvent, error) {
	var ev domain.ChangeEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return ev, err
	}
	if ev.OfferID == "" || ev.Type == "" {
		return ev, fmt.Errorf("incomplete change event")
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	return ev, nil
}
