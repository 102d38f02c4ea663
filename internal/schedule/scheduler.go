// Package schedule runs deferred session callbacks against a SimClock.
package schedule

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/signalsfoundry/dna-repair-sim/timectrl"
)

// EventScheduler schedules callbacks to run at specific simulation times.
//
// The driving loop advances the clock and calls RunDue after each advance.
// Sessions use Schedule / Cancel to manage the deferred return to Clean.
type EventScheduler interface {
	// Schedule registers f to run at simulation time 'at' and returns an
	// opaque token for Cancel.
	Schedule(at time.Time, f func()) (id string)

	// Cancel drops a scheduled event. Unknown or already-run ids are ignored.
	Cancel(id string)

	// Pending reports whether id is scheduled and not yet run or cancelled.
	Pending(id string) bool

	// Now returns the current simulation time.
	Now() time.Time

	// RunDue executes every event whose time is <= Now(). Events never run twice.
	RunDue()
}

// Observer receives scheduler activity. pending is the number of events still
// waiting after the change.
type Observer interface {
	EventScheduled(pending int)
	EventCancelled(pending int)
	EventFired(lateness time.Duration, pending int)
}

// Option customises an EventScheduler.
type Option func(*eventScheduler)

// WithObserver reports scheduling activity to o.
func WithObserver(o Observer) Option {
	return func(s *eventScheduler) { s.observer = o }
}

type scheduledEvent struct {
	id        string
	when      time.Time
	f         func()
	cancelled bool
}

// eventScheduler keeps events ordered by time and reads Now from a SimClock.
type eventScheduler struct {
	clock    timectrl.SimClock
	observer Observer

	mu      sync.Mutex
	counter uint64
	events  []*scheduledEvent // earliest first
	index   map[string]*scheduledEvent
}

// NewEventScheduler creates a scheduler backed by clock.
func NewEventScheduler(clock timectrl.SimClock, opts ...Option) EventScheduler {
	if clock == nil {
		clock = timectrl.WallClock{}
	}
	s := &eventScheduler{
		clock: clock,
		index: make(map[string]*scheduledEvent),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *eventScheduler) Schedule(at time.Time, f func()) (id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counter++
	id = fmt.Sprintf("ev-%d", s.counter)

	ev := &scheduledEvent{id: id, when: at, f: f}
	s.insertLocked(ev)
	s.index[id] = ev
	if s.observer != nil {
		s.observer.EventScheduled(len(s.index))
	}
	return id
}

// insertLocked keeps s.events ordered; equal times keep insertion order.
// Caller must hold s.mu.
func (s *eventScheduler) insertLocked(ev *scheduledEvent) {
	idx := sort.Search(len(s.events), func(i int) bool {
		return s.events[i].when.After(ev.when)
	})
	s.events = append(s.events, nil)
	copy(s.events[idx+1:], s.events[idx:])
	s.events[idx] = ev
}

func (s *eventScheduler) Cancel(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, ok := s.index[id]
	if !ok {
		return
	}
	ev.cancelled = true
	delete(s.index, id)
	// Removal from s.events is lazy; RunDue skips cancelled events.
	if s.observer != nil {
		s.observer.EventCancelled(len(s.index))
	}
}

func (s *eventScheduler) Pending(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.index[id]
	return ok
}

func (s *eventScheduler) Now() time.Time {
	return s.clock.Now()
}

// popDueLocked removes and returns the earliest due event, skipping
// cancelled ones. Caller must hold s.mu.
func (s *eventScheduler) popDueLocked(now time.Time) *scheduledEvent {
	for len(s.events) > 0 {
		ev := s.events[0]
		if ev.cancelled {
			s.events = s.events[1:]
			continue
		}
		if ev.when.After(now) {
			return nil
		}
		s.events = s.events[1:]
		delete(s.index, ev.id)
		return ev
	}
	return nil
}

func (s *eventScheduler) RunDue() {
	now := s.clock.Now()
	for {
		s.mu.Lock()
		ev := s.popDueLocked(now)
		pending := len(s.index)
		s.mu.Unlock()
		if ev == nil {
			return
		}
		if s.observer != nil {
			s.observer.EventFired(now.Sub(ev.when), pending)
		}
		// Callbacks run outside the lock so they may Schedule or Cancel.
		if ev.f != nil {
			ev.f()
		}
	}
}
