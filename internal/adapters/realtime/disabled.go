package realtime

import (
	"context"

	"github.com/comitanigiacomo/ferienplan-sync/internal/core/domain"
)

var _ domain.RealtimeClient = Disabled{}

// Disabled is used when no change feed is configured. Every channel fails
// right away, which leaves the sync controller in polling mode.
type Disabled struct{}

func (Disabled) Subscribe(ctx context.Context, name, table string, handlers domain.ChannelHandlers) (domain.Channel, error) {
	return newChannel(ctx, name, handlers, func(ctx context.Context, ch *channel) {
		ch.status(domain.StatusChannelError, domain.ErrRealtimeDisabled)
	}), nil
}
