// internal/report/session.go
package report

import (
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// defaultDebounce is the delay between the last segment change and the
// refresh it triggers.
const defaultDebounce = 500 * time.Millisecond

// EventKind identifies a segment lifecycle event.
type EventKind int

const (
	SegmentAdded EventKind = iota
	SegmentRemoved
	SegmentModified
	RepresentationModified
)

// String returns a readable name for the event kind
func (k EventKind) String() string {
	switch k {
	case SegmentAdded:
		return "SegmentAdded"
	case SegmentRemoved:
		return "SegmentRemoved"
	case SegmentModified:
		return "SegmentModified"
	default:
		return "RepresentationModified"
	}
}

// SegmentEvent is the payload delivered to session subscribers.
type SegmentEvent struct {
	Kind      EventKind
	SegmentID int
	Label     string
}

// SessionConfig configures a report editing session.
type SessionConfig struct {
	// Store receives the per-segment characteristic bookkeeping. Required.
	Store *Store
	// OnRefresh runs after a debounced sync with the current segment ids,
	// ascending. Optional.
	OnRefresh func(ids []int)
	// Debounce overrides the refresh delay. Zero keeps the 500ms default.
	Debounce time.Duration
	Logger   *zap.Logger
}

// Session tracks the segments of one report while it is being edited. It
// owns the characteristics store: segment events keep the store pruned to
// the segments that still exist and seed entries for new ones, after a
// debounce so rapid edits collapse into one refresh. Subscribers receive
// every event as it arrives.
//
// The session serializes its own state; the store must only be touched
// through the session while one is attached. Save workflows read the
// store after Flush or Close.
type Session struct {
	store     *Store
	onRefresh func([]int)
	debounce  time.Duration
	logger    *zap.Logger

	mu          sync.Mutex
	segments    map[int]string
	subscribers map[int]func(SegmentEvent)
	nextSub     int
	timer       *time.Timer
	autoUpdate  bool
	stale       bool
	closed      bool
}

// NewSession creates a session over the given store. Auto update starts
// enabled.
func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.Store == nil {
		return nil, errors.New("session requires a store")
	}
	if cfg.Debounce == 0 {
		cfg.Debounce = defaultDebounce
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Session{
		store:       cfg.Store,
		onRefresh:   cfg.OnRefresh,
		debounce:    cfg.Debounce,
		logger:      cfg.Logger,
		segments:    make(map[int]string),
		subscribers: make(map[int]func(SegmentEvent)),
		autoUpdate:  true,
	}, nil
}

// Subscribe registers a callback for segment events and returns its
// unregister function. Callbacks run synchronously on the goroutine
// calling Notify, in no particular order.
func (s *Session) Subscribe(fn func(SegmentEvent)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return func() {}
	}

	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

// Notify feeds one segment event into the session. The segment set is
// updated, subscribers are called, and the debounced refresh is restarted
// so that only the last event of a burst triggers it.
func (s *Session) Notify(ev SegmentEvent) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	switch ev.Kind {
	case SegmentAdded, SegmentModified:
		s.segments[ev.SegmentID] = ev.Label
	case SegmentRemoved:
		delete(s.segments, ev.SegmentID)
	}
	s.stale = true

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, s.flush)

	fns := make([]func(SegmentEvent), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// flush runs when the debounce timer fires.
func (s *Session) flush() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	ids := s.syncLocked()
	refresh := s.autoUpdate
	if refresh {
		s.stale = false
	}
	s.mu.Unlock()

	s.logger.Debug("Synced segment characteristics", zap.Ints("segments", ids))
	if refresh && s.onRefresh != nil {
		s.onRefresh(ids)
	}
}

// syncLocked prunes the store to the current segment set and seeds entries
// for segments seen for the first time. Callers hold s.mu.
func (s *Session) syncLocked() []int {
	ids := make([]int, 0, len(s.segments))
	for id := range s.segments {
		ids = append(ids, id)
	}
	s.store.Prune(ids)
	for _, id := range ids {
		s.store.GetOrCreate(id)
	}
	return s.store.OrderedKeys()
}

// Flush cancels any pending debounce and syncs the store immediately.
// It returns the current segment ids, ascending. The refresh callback is
// not invoked.
func (s *Session) Flush() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	return s.syncLocked()
}

// SetAutoUpdate toggles the automatic refresh after segment changes.
// Turning it back on while changes are pending refreshes immediately.
func (s *Session) SetAutoUpdate(on bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.autoUpdate = on
	trigger := on && s.stale
	var ids []int
	if trigger {
		ids = s.syncLocked()
		s.stale = false
	}
	s.mu.Unlock()

	if trigger && s.onRefresh != nil {
		s.onRefresh(ids)
	}
}

// AutoUpdate reports whether automatic refresh is enabled.
func (s *Session) AutoUpdate() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autoUpdate
}

// Stale reports whether segment changes happened since the last refresh.
func (s *Session) Stale() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stale
}

// SegmentIDs returns the ids of the segments currently tracked, ascending.
func (s *Session) SegmentIDs() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int, 0, len(s.segments))
	for id := range s.segments {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Close stops the debounce timer and drops all subscribers. Further
// notifications are ignored.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.subscribers = nil
}
