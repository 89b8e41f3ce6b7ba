package domain

import (
	"context"
	"errors"
	"time"
)

var ErrRealtimeDisabled = errors.New("realtime is disabled")

type ChannelStatus string

const (
	StatusSubscribed   ChannelStatus = "SUBSCRIBED"
	StatusChannelError ChannelStatus = "CHANNEL_ERROR"
	StatusTimedOut     ChannelStatus = "TIMED_OUT"
	StatusClosed       ChannelStatus = "CLOSED"
)

type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

// ChangeEvent is a row-level change notification for a table.
type ChangeEvent struct {
	Table     string     `json:"table"`
	Type      ChangeType `json:"type"`
	OfferID   string     `json:"id"`
	Date      string     `json:"date,omitempty"`
	Timestamp time.Time  `json:"commit_timestamp"`
}

// ChannelHandlers are invoked from the channel's own goroutine.
type ChannelHandlers struct {
	OnChange func(ChangeEvent)
	OnStatus func(status ChannelStatus, err error)
}

type Channel interface {
	Name() string

	// Close unsubscribes and releases the channel. Calling it more than once
	// is safe.
	Close() error
}

type RealtimeClient interface {
	// Subscribe opens a channel delivering every change of table. Status
	// transitions are reported asynchronously through handlers.OnStatus.
	Subscribe(ctx context.Context, name, table string, handlers ChannelHandlers) (Channel, error)
}

// ChangePublisher announces changes made through this process to realtime
// backends that have no native change feed.
type ChangePublisher interface {
	Publish(ctx context.Context, event ChangeEvent) error
}
