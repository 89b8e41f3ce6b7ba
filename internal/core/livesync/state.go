package livesync

import (
	"sync"
	"time"

	"github.com/comitanigiacomo/ferienplan-sync/internal/core/domain"
)

type Snapshot struct {
	Offers    domain.OfferIndex `json:"offers"`
	Loading   bool              `json:"loading"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// State is the process-wide published view of the offers. Readers get the
// latest snapshot; watchers are notified on every change and only ever see
// the newest value.
type State struct {
	mu       sync.RWMutex
	snapshot Snapshot
	watchers map[int]chan Snapshot
	nextID   int
}

func NewState() *State {
	return &State{
		snapshot: Snapshot{Offers: domain.OfferIndex{}, Loading: true},
		watchers: make(map[int]chan Snapshot),
	}
}

func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

func (s *State) Offers() domain.OfferIndex {
	return s.Snapshot().Offers
}

func (s *State) Loading() bool {
	return s.Snapshot().Loading
}

// SetOffers replaces the published index.
func (s *State) SetOffers(index domain.OfferIndex) {
	if index == nil {
		index = domain.OfferIndex{}
	}
	s.update(func(snap *Snapshot) {
		snap.Offers = index
	})
}

func (s *State) SetLoading(loading bool) {
	s.update(func(snap *Snapshot) {
		snap.Loading = loading
	})
}

func (s *State) update(fn func(*Snapshot)) {
	s.mu.Lock()
	fn(&s.snapshot)
	s.snapshot.UpdatedAt = time.Now().UTC()
	snap := s.snapshot
	for _, ch := range s.watchers {
		notify(ch, snap)
	}
	s.mu.Unlock()
}

func notify(ch chan Snapshot, snap Snapshot) {
	select {
	case ch <- snap:
		return
	default:
	}
	// Drop the stale value the watcher has not picked up yet.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snap:
	default:
	}
}

// Watch returns a channel that receives the current snapshot immediately and
// every later one. The returned func unregisters the watcher and closes the
// channel.
func (s *State) Watch() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = ch
	ch <- s.snapshot
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.watchers, id)
			close(ch)
			s.mu.Unlock()
		})
	}
}
