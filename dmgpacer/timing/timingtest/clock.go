// Package timingtest provides a manually driven timing.Clock for tests.
package timingtest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/valerio/go-dmgpacer/dmgpacer/timing"
)

// Clock only moves when Advance is called. Timers never fire on their own,
// not even with a zero duration, so tests control exactly when a tick runs.
type Clock struct {
	mu      sync.Mutex
	now     time.Time
	timers  []*timer
	changed chan struct{}
}

var _ timing.Clock = (*Clock)(nil)

func NewClock() *Clock {
	return &Clock{
		now:     time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC),
		changed: make(chan struct{}),
	}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) NewTimer(d time.Duration) timing.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &timer{
		clock:    c,
		c:        make(chan time.Time, 1),
		deadline: c.now.Add(d),
	}
	c.timers = append(c.timers, t)
	c.notify()
	return t
}

// Advance moves the clock forward and fires every timer whose deadline has
// been reached, earliest first.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)

	sort.SliceStable(c.timers, func(i, j int) bool {
		return c.timers[i].deadline.Before(c.timers[j].deadline)
	})

	remaining := c.timers[:0]
	for _, t := range c.timers {
		if t.deadline.After(c.now) {
			remaining = append(remaining, t)
			continue
		}
		t.c <- c.now
	}
	c.timers = remaining
	c.notify()
}

// Pending returns the number of timers that have not fired or been stopped.
func (c *Clock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// LastDeadline returns how far in the future the latest pending timer is,
// or false if nothing is pending.
func (c *Clock) LastDeadline() (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.timers) == 0 {
		return 0, false
	}
	latest := c.timers[0].deadline
	for _, t := range c.timers[1:] {
		if t.deadline.After(latest) {
			latest = t.deadline
		}
	}
	return latest.Sub(c.now), true
}

// WaitForTimers blocks until at least n timers are pending.
func (c *Clock) WaitForTimers(ctx context.Context, n int) error {
	for {
		c.mu.Lock()
		if len(c.timers) >= n {
			c.mu.Unlock()
			return nil
		}
		changed := c.changed
		c.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// notify wakes WaitForTimers callers. Requires c.mu.
func (c *Clock) notify() {
	close(c.changed)
	c.changed = make(chan struct{})
}

type timer struct {
	clock    *Clock
	c        chan time.Time
	deadline time.Time
}

func (t *timer) C() <-chan time.Time {
	return t.c
}

func (t *timer) Stop() bool {
	c := t.clock
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, pending := range c.timers {
		if pending == t {
			c.timers = append(c.timers[:i], c.timers[i+1:]...)
			c.notify()
			return true
		}
	}
	return false
}
