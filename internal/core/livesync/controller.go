package livesync

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/comitanigiacomo/ferienplan-sync/internal/core/domain"
	"github.com/comitanigiacomo/ferienplan-sync/internal/core/workers"
)

type Mode string

const (
	ModeInitializing Mode = "INITIALIZING"
	ModeLivePending  Mode = "LIVE_PENDING"
	ModeLive         Mode = "LIVE"
	ModePolling      Mode = "POLLING"
	ModeStopped      Mode = "STOPPED"
)

const (
	DefaultChannelName   = "ferienplan-changes"
	DefaultTable         = "offers"
	DefaultFallbackDelay = 3 * time.Second
)

type Loader interface {
	Load(ctx context.Context, dates []string) domain.OfferIndex
}

type Purger interface {
	Purge(ctx context.Context, now time.Time) PurgeReport
}

type Config struct {
	ChannelName   string
	Table         string
	FallbackDelay time.Duration
	PollInterval  time.Duration
	Location      *time.Location
	Now           func() time.Time
}

func (c Config) withDefaults() Config {
	if c.ChannelName == "" {
		c.ChannelName = DefaultChannelName
	}
	if c.Table == "" {
		c.Table = DefaultTable
	}
	if c.FallbackDelay <= 0 {
		c.FallbackDelay = DefaultFallbackDelay
	}
	if c.PollInterval <= 0 {
		c.PollInterval = workers.DefaultPollInterval
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

type Status struct {
	Mode        Mode              `json:"mode"`
	Confirmed   bool              `json:"confirmed"`
	Polling     bool              `json:"polling"`
	SessionID   uint64            `json:"session_id"`
	Window      domain.DateWindow `json:"window"`
	LastEventAt *time.Time        `json:"last_event_at,omitempty"`
}

// Controller keeps the published offers of today and tomorrow fresh. Realtime
// change events drive reloads; until the first event proves the channel is
// live, or whenever the channel fails, a poll loop reloads instead.
type Controller struct {
	cfg       Config
	store     Loader
	retention Purger
	realtime  domain.RealtimeClient
	state     *State
	logger    *slog.Logger

	// mu serializes session swaps.
	mu      sync.Mutex
	session *session
	seq     uint64

	// statusMu guards the active session id and the status it publishes.
	statusMu sync.RWMutex
	activeID uint64
	poller   *workers.PollWorker
	status   Status
}

func NewController(cfg Config, store Loader, retention Purger, realtime domain.RealtimeClient, state *State, logger *slog.Logger) *Controller {
	return &Controller{
		cfg:       cfg.withDefaults(),
		store:     store,
		retention: retention,
		realtime:  realtime,
		state:     state,
		logger:    logger.With("component", "sync_controller"),
		status:    Status{Mode: ModeStopped},
	}
}

func (c *Controller) State() *State {
	return c.state
}

func (c *Controller) Status() Status {
	c.statusMu.RLock()
	st := c.status
	poller := c.poller
	c.statusMu.RUnlock()

	if poller != nil {
		st.Polling = poller.Running()
	}
	return st
}

// Subscribe purges stale offers, publishes the current window and opens a
// new realtime session, replacing any previous one. With useFallbackPolling
// polling starts when no change event arrived within the fallback delay.
// The returned func tears the session down; it is safe to call repeatedly.
func (c *Controller) Subscribe(ctx context.Context, useFallbackPolling bool) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	// The previous session keeps running until the swap below; from here on
	// nothing it loads may be published.
	c.statusMu.Lock()
	c.activeID = 0
	c.statusMu.Unlock()

	now := c.cfg.Now().In(c.cfg.Location)
	window := domain.RelevantDates(now)

	if c.retention != nil {
		c.retention.Purge(ctx, now)
	}

	index := c.store.Load(ctx, window.Dates())
	c.state.SetOffers(index)
	c.state.SetLoading(false)

	if c.session != nil {
		c.session.stop()
	}

	c.seq++
	s := c.newSession(ctx, c.seq, window)
	c.session = s

	c.statusMu.Lock()
	c.activeID = s.id
	c.poller = s.poller
	c.status = Status{Mode: ModeInitializing, SessionID: s.id, Window: window}
	c.statusMu.Unlock()

	go c.reduce(s)

	c.logger.Info("Sync session started",
		"session", s.id,
		"dates", window.Dates(),
		"offers", index.Count(),
		"fallback_polling", useFallbackPolling)

	ch, err := c.realtime.Subscribe(s.ctx, c.cfg.ChannelName, c.cfg.Table, domain.ChannelHandlers{
		OnChange: func(ev domain.ChangeEvent) {
			s.enqueue(event{kind: eventChange, change: ev})
		},
		OnStatus: func(status domain.ChannelStatus, err error) {
			s.enqueue(event{kind: eventStatus, status: status, err: err})
		},
	})
	if err != nil {
		status := domain.StatusChannelError
		if errors.Is(err, context.DeadlineExceeded) {
			status = domain.StatusTimedOut
		}
		s.enqueue(event{kind: eventStatus, status: status, err: err})
	} else {
		s.setChannel(ch)
	}

	if useFallbackPolling {
		s.armFallback(c.cfg.FallbackDelay)
	}

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		s.stop()
		if c.session == s {
			c.session = nil
			c.statusMu.Lock()
			c.activeID = 0
			c.poller = nil
			c.status.Mode = ModeStopped
			c.status.Confirmed = false
			c.statusMu.Unlock()
		}
	}
}

// Close tears down the active session, if any.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return
	}
	c.session.stop()
	c.session = nil

	c.statusMu.Lock()
	c.activeID = 0
	c.poller = nil
	c.status.Mode = ModeStopped
	c.status.Confirmed = false
	c.statusMu.Unlock()
}

func (c *Controller) newSession(parent context.Context, id uint64, window domain.DateWindow) *session {
	ctx, cancel := context.WithCancel(parent)
	s := &session{
		id:     id,
		ctx:    ctx,
		cancel: cancel,
		window: window,
		events: make(chan event, 64),
		done:   make(chan struct{}),
		logger: c.logger.With("session", id),
	}
	s.poller = workers.NewPollWorker(c.cfg.PollInterval, func(ctx context.Context, dates []string) error {
		index := c.store.Load(ctx, dates)
		if err := ctx.Err(); err != nil {
			return err
		}
		c.publish(s, index)
		return nil
	}, s.logger)
	return s
}

func (c *Controller) reduce(s *session) {
	defer close(s.done)

	for {
		select {
		case <-s.ctx.Done():
			return
		case ev := <-s.events:
			if s.ctx.Err() != nil {
				return
			}
			c.handle(s, ev)
		}
	}
}

func (c *Controller) handle(s *session, ev event) {
	switch ev.kind {
	case eventChange:
		c.touch(s)
		if !s.confirmed {
			s.confirmed = true
			c.setMode(s, ModeLive)
			s.stopFallback()
			s.poller.Stop()
			s.logger.Info("Realtime confirmed, polling off", "type", ev.change.Type, "offer_id", ev.change.OfferID)
		}
		c.publish(s, c.store.Load(s.ctx, s.window.Dates()))

	case eventStatus:
		switch ev.status {
		case domain.StatusSubscribed:
			s.logger.Info("Realtime channel subscribed")
			c.advance(s, ModeInitializing, ModeLivePending)
		case domain.StatusChannelError, domain.StatusTimedOut:
			s.logger.Warn("Realtime channel failed, falling back to polling", "status", ev.status, "error", ev.err)
			s.confirmed = false
			c.setMode(s, ModePolling)
			s.poller.Start(s.ctx, s.window.Dates())
		case domain.StatusClosed:
			s.logger.Info("Realtime channel closed")
		default:
			s.logger.Debug("Unknown channel status", "status", ev.status)
		}

	case eventFallback:
		if s.confirmed {
			return
		}
		s.logger.Info("No realtime event yet, starting fallback polling")
		c.setMode(s, ModePolling)
		s.poller.Start(s.ctx, s.window.Dates())
	}
}

// publish replaces the published offers unless s has been superseded.
func (c *Controller) publish(s *session, index domain.OfferIndex) {
	c.statusMu.RLock()
	defer c.statusMu.RUnlock()

	if c.activeID != s.id || s.ctx.Err() != nil {
		return
	}
	c.state.SetOffers(index)
}

func (c *Controller) setMode(s *session, mode Mode) {
	c.statusMu.Lock()
	defer c.statusMu.Unlock()

	if c.activeID != s.id {
		return
	}
	c.status.Mode = mode
	c.status.Confirmed = s.confirmed
}

func (c *Controller) advance(s *session, from, to Mode) {
	c.statusMu.Lock()
	defer c.statusMu.Unlock()

	if c.activeID != s.id || c.status.Mode != from {
		return
	}
	c.status.Mode = to
}

func (c *Controller) touch(s *session) {
	now := time.Now().UTC()

	c.statusMu.Lock()
	defer c.statusMu.Unlock()

	if c.activeID == s.id {
		c.status.LastEventAt = &now
	}
}

type eventKind int

const (
	eventStatus eventKind = iota
	eventChange
	eventFallback
)

type event struct {
	kind   eventKind
	status domain.ChannelStatus
	err    error
	change domain.ChangeEvent
}

type session struct {
	id     uint64
	ctx    context.Context
	cancel context.CancelFunc
	window domain.DateWindow
	events chan event
	done   chan struct{}
	poller *workers.PollWorker
	logger *slog.Logger

	// confirmed is owned by the reducer goroutine.
	confirmed bool

	mu      sync.Mutex
	channel domain.Channel
	timer   *time.Timer

	stopOnce sync.Once
}

func (s *session) enqueue(ev event) {
	select {
	case s.events <- ev:
	case <-s.ctx.Done():
	}
}

func (s *session) setChannel(ch domain.Channel) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx.Err() != nil {
		_ = ch.Close()
		return
	}
	s.channel = ch
}

func (s *session) armFallback(delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx.Err() != nil {
		return
	}
	s.timer = time.AfterFunc(delay, func() {
		s.enqueue(event{kind: eventFallback})
	})
}

func (s *session) stopFallback() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *session) stop() {
	s.stopOnce.Do(func() {
		s.cancel()
		<-s.done

		s.stopFallback()

		s.mu.Lock()
		ch := s.channel
		s.channel = nil
		s.mu.Unlock()
		if ch != nil {
			if err := ch.Close(); err != nil {
				s.logger.Warn("Failed to close realtime channel", "channel", ch.Name(), "error", err)
			}
		}

		s.poller.Stop()
		s.logger.Info("Sync session stopped")
	})
}
