package workers

import (
	"context"
	"log/slog"
	"time"

	"github.com/comitanigiacomo/ferienplan-sync/internal/core/domain"
)

const DefaultKeepAliveInterval = 6 * time.Hour

type KeepAliver interface {
	KeepAlive(ctx context.Context) domain.KeepAliveResult
}

// KeepAliveWorker issues a trivial read on a schedule so an idle hosted
// database is not paused.
type KeepAliveWorker struct {
	service  KeepAliver
	interval time.Duration
	logger   *slog.Logger
}

func NewKeepAliveWorker(service KeepAliver, interval time.Duration, logger *slog.Logger) *KeepAliveWorker {
	if interval <= 0 {
		interval = DefaultKeepAliveInterval
	}
	return &KeepAliveWorker{
		service:  service,
		interval: interval,
		logger:   logger.With("component", "keepalive_worker"),
	}
}

func (w *KeepAliveWorker) Start(ctx context.Context) {
	go func() {
		w.logger.Info("Keep-alive worker started", "interval", w.interval)
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				w.runOnce(ctx)
			case <-ctx.Done():
				w.logger.Info("Keep-alive worker shutting down")
				return
			}
		}
	}()
}

func (w *KeepAliveWorker) runOnce(ctx context.Context) {
	res := w.service.KeepAlive(ctx)
	if !res.Success {
		w.logger.Warn("Keep-alive failed", "error", res.Error)
		return
	}
	w.logger.Info("Keep-alive succeeded", "records", res.RecordsFound)
}
