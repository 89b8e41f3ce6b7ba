package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/comitanigiacomo/ferienplan-sync/internal/core/domain"
)

const (
	minBackoff = 500 * time.Millisecond
	maxBackoff = 30 * time.Second
)

// channel is the handle shared by all clients: a goroutine running until
// Close cancels it.
type channel struct {
	name     string
	cancel   context.CancelFunc
	done     chan struct{}
	handlers domain.ChannelHandlers
	once     sync.Once
}

func newChannel(ctx context.Context, name string, handlers domain.ChannelHandlers, run func(ctx context.Context, ch *channel)) *channel {
	ctx, cancel := context.WithCancel(ctx)
	ch := &channel{
		name:     name,
		cancel:   cancel,
		done:     make(chan struct{}),
		handlers: handlers,
	}
	go func() {
		defer close(ch.done)
		run(ctx, ch)
	}()
	return ch
}

func (c *channel) Name() string {
	return c.name
}

func (c *channel) Close() error {
	c.once.Do(func() {
		c.cancel()
		<-c.done
		c.status(domain.StatusClosed, nil)
	})
	return nil
}

func (c *channel) status(s domain.ChannelStatus, err error) {
	if c.handlers.OnStatus != nil {
		c.handlers.OnStatus(s, err)
	}
}

func (c *channel) change(ev domain.ChangeEvent) {
	if c.handlers.OnChange != nil {
		c.handlers.OnChange(ev)
	}
}

// sleep waits d or until ctx is done and reports whether ctx is still live.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func nextBackoff(d time.Duration) time.Duration {
	if d < minBackoff {
		return minBackoff
	}
	d *= 2
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}
