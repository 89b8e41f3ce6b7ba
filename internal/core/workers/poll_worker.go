package workers

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const DefaultPollInterval = 5 * time.Second

// PollFunc reloads and publishes the offers of dates.
type PollFunc func(ctx context.Context, dates []string) error

// PollWorker reloads periodically while realtime delivery is not confirmed.
// At most one loop runs at a time.
type PollWorker struct {
	interval time.Duration
	poll     PollFunc
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewPollWorker(interval time.Duration, poll PollFunc, logger *slog.Logger) *PollWorker {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &PollWorker{
		interval: interval,
		poll:     poll,
		logger:   logger.With("component", "poll_worker"),
	}
}

// Start launches the loop and reports whether it did. It is a no-op while a
// loop is already running.
func (w *PollWorker) Start(ctx context.Context, dates []string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel != nil {
		return false
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	w.cancel = cancel
	w.done = done

	go w.run(loopCtx, dates, done)

	w.logger.Info("Polling started", "interval", w.interval, "dates", dates)
	return true
}

// Stop cancels the running loop and waits for it to exit.
func (w *PollWorker) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	w.logger.Info("Polling stopped")
}

func (w *PollWorker) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cancel != nil
}

func (w *PollWorker) run(ctx context.Context, dates []string, done chan struct{}) {
	ticker := time.NewTicker(w.interval)
	defer func() {
		ticker.Stop()

		w.mu.Lock()
		if w.done == done {
			w.cancel()
			w.cancel, w.done = nil, nil
		}
		w.mu.Unlock()

		close(done)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.poll(ctx, dates); err != nil {
				if ctx.Err() != nil {
					return
				}
				w.logger.Warn("Poll tick failed", "error", err)
			}
		}
	}
}
