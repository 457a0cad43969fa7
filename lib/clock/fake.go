// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"slices"
	"sync"
	"time"
)

// Fake returns a FakeClock standing at initial. Time only moves when
// Advance is called.
func Fake(initial time.Time) *FakeClock {
	c := &FakeClock{now: initial}
	c.changed = sync.NewCond(&c.mu)
	return c
}

// FakeClock is a deterministic Clock for tests. It is safe for
// concurrent use.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	pending []*wait
	changed *sync.Cond
}

var _ Clock = (*FakeClock)(nil)

// wait is one registered After, Sleep or ticker.
type wait struct {
	due    time.Time
	ch     chan time.Time
	period time.Duration // non-zero for tickers
	done   bool
}

// Now returns the fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// After registers a one-shot wait. A non-positive d fires at once and
// does not count as pending.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan time.Time, 1)
	if d <= 0 {
		ch <- c.now
		return ch
	}
	c.addLocked(&wait{due: c.now.Add(d), ch: ch})
	return ch
}

// Sleep blocks until the clock has been advanced past d.
func (c *FakeClock) Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	<-c.After(d)
}

// NewTicker registers a periodic wait.
func (c *FakeClock) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: non-positive interval for NewTicker")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	w := &wait{due: c.now.Add(d), ch: make(chan time.Time, 1), period: d}
	c.addLocked(w)
	return &Ticker{
		C: w.ch,
		stop: func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			w.done = true
			c.changed.Broadcast()
		},
	}
}

func (c *FakeClock) addLocked(w *wait) {
	c.pending = append(c.pending, w)
	c.changed.Broadcast()
}

// Advance moves time forward by d and fires every wait whose deadline
// is reached, earliest first. A ticker spanning several periods fires
// once per period; ticks beyond its buffer are dropped.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	target := c.now
	c.mu.Unlock()

	for {
		expired := c.expire(target)
		if len(expired) == 0 {
			return
		}
		for _, w := range expired {
			select {
			case w.ch <- target:
			default:
			}
		}
	}
}

// expire removes due one-shot waits, reschedules due tickers and
// returns what should fire, ordered by deadline.
func (c *FakeClock) expire(target time.Time) []*wait {
	c.mu.Lock()
	defer c.mu.Unlock()

	var due []*wait
	kept := c.pending[:0]
	for _, w := range c.pending {
		switch {
		case w.done:
		case !w.due.After(target):
			due = append(due, w)
			if w.period > 0 {
				kept = append(kept, w)
			}
		default:
			kept = append(kept, w)
		}
	}
	clear(c.pending[len(kept):])
	c.pending = kept

	slices.SortStableFunc(due, func(a, b *wait) int { return a.due.Compare(b.due) })
	for _, w := range due {
		if w.period > 0 {
			w.due = w.due.Add(w.period)
		} else {
			w.done = true
		}
	}
	if len(due) > 0 {
		c.changed.Broadcast()
	}
	return due
}

// WaitForTimers blocks until at least n waits are pending. Call it
// before Advance so the goroutine under test has parked first.
func (c *FakeClock) WaitForTimers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.pendingLocked() < n {
		c.changed.Wait()
	}
}

// PendingCount returns the number of live waits.
func (c *FakeClock) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingLocked()
}

func (c *FakeClock) pendingLocked() int {
	n := 0
	for _, w := range c.pending {
		if !w.done {
			n++
		}
	}
	return n
}
