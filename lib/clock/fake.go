// Copyright 2026 The Keyweave Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"container/heap"
	"sync"
	"time"
)

// Fake returns a FakeClock standing at start. Time moves only when
// Advance is called.
func Fake(start time.Time) *FakeClock {
	c := &FakeClock{now: start}
	c.changed = sync.NewCond(&c.mu)
	return c
}

// FakeClock is a deterministic Clock for tests. It is safe for
// concurrent use.
type FakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers timerQueue
	serial uint64

	// changed is broadcast whenever a timer is armed, fired or
	// stopped.
	changed *sync.Cond
}

// fakeTimer is one armed After or ticker.
type fakeTimer struct {
	due    time.Time
	serial uint64
	period time.Duration
	fire   chan time.Time

	// slot is the position in the queue, or -1 once removed.
	slot int
}

// timerQueue orders timers by due time, then by arming order.
type timerQueue []*fakeTimer

func (q timerQueue) Len() int { return len(q) }

func (q timerQueue) Less(i, j int) bool {
	if q[i].due.Equal(q[j].due) {
		return q[i].serial < q[j].serial
	}
	return q[i].due.Before(q[j].due)
}

func (q timerQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].slot = i
	q[j].slot = j
}

func (q *timerQueue) Push(x any) {
	timer := x.(*fakeTimer)
	timer.slot = len(*q)
	*q = append(*q, timer)
}

func (q *timerQueue) Pop() any {
	old := *q
	timer := old[len(old)-1]
	old[len(old)-1] = nil
	timer.slot = -1
	*q = old[:len(old)-1]
	return timer
}

// arm queues a timer due after d. The caller holds c.mu.
func (c *FakeClock) arm(d, period time.Duration) *fakeTimer {
	c.serial++
	timer := &fakeTimer{
		due:    c.now.Add(d),
		serial: c.serial,
		period: period,
		fire:   make(chan time.Time, 1),
	}
	heap.Push(&c.timers, timer)
	c.changed.Broadcast()
	return timer
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// After returns a channel that receives the due time once the clock
// reaches it. d <= 0 is ready at once and arms nothing.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d <= 0 {
		ready := make(chan time.Time, 1)
		ready <- c.now
		return ready
	}
	return c.arm(d, 0).fire
}

// NewTicker returns a Ticker due at every multiple of d from now.
// Panics if d <= 0.
func (c *FakeClock) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: non-positive interval for NewTicker")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	timer := c.arm(d, d)
	return &Ticker{
		C: timer.fire,
		stop: func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if timer.slot >= 0 {
				heap.Remove(&c.timers, timer.slot)
				c.changed.Broadcast()
			}
		},
	}
}

// Advance moves the clock forward by d, firing every timer that falls
// due on the way in due order. Each timer receives its own due time. A
// ticker whose previous tick is still unread loses the new one.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	target := c.now.Add(d)
	for len(c.timers) > 0 && !c.timers[0].due.After(target) {
		timer := c.timers[0]
		c.now = timer.due
		select {
		case timer.fire <- timer.due:
		default:
		}
		if timer.period > 0 {
			timer.due = timer.due.Add(timer.period)
			heap.Fix(&c.timers, 0)
		} else {
			heap.Pop(&c.timers)
		}
	}
	c.now = target
	c.changed.Broadcast()
}

// WaitForTimers blocks until at least n timers are armed.
func (c *FakeClock) WaitForTimers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.timers) < n {
		c.changed.Wait()
	}
}

// PendingCount returns the number of armed timers.
func (c *FakeClock) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}
