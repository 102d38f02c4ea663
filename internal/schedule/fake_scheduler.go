package schedule

import (
	"sync"
	"time"
)

// manualClock is a SimClock whose time only moves when told to.
type manualClock struct {
	mu  sync.RWMutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

func (c *manualClock) set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// FakeEventScheduler is an EventScheduler with its own manual clock so tests
// can move time explicitly and run due events deterministically.
type FakeEventScheduler struct {
	clock *manualClock
	EventScheduler
}

// NewFakeEventScheduler creates a fake scheduler starting at start.
func NewFakeEventScheduler(start time.Time, opts ...Option) *FakeEventScheduler {
	clock := &manualClock{now: start}
	return &FakeEventScheduler{
		clock:          clock,
		EventScheduler: NewEventScheduler(clock, opts...),
	}
}

// AdvanceTo moves fake time to t and runs every due event. Time never goes
// backwards.
func (s *FakeEventScheduler) AdvanceTo(t time.Time) {
	if t.Before(s.clock.Now()) {
		return
	}
	s.clock.set(t)
	s.RunDue()
}

// Advance moves fake time forward by d and runs due events.
func (s *FakeEventScheduler) Advance(d time.Duration) {
	s.AdvanceTo(s.clock.Now().Add(d))
}
