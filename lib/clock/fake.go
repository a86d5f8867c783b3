// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"container/heap"
	"sync"
	"time"
)

// FakeClock is a Clock that moves only when Advance is called. It is
// safe for concurrent use.
type FakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers timerQueue
	// parked is closed and replaced each time a timer is registered.
	parked chan struct{}
}

// Fake returns a FakeClock reading start.
func Fake(start time.Time) *FakeClock {
	return &FakeClock{now: start, parked: make(chan struct{})}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	fire := make(chan time.Time, 1)

	c.mu.Lock()
	defer c.mu.Unlock()
	if d <= 0 {
		fire <- c.now
		return fire
	}
	heap.Push(&c.timers, &fakeTimer{due: c.now.Add(d), fire: fire, seq: c.timers.next})
	c.timers.next++
	close(c.parked)
	c.parked = make(chan struct{})
	return fire
}

// Advance moves the clock forward by d. Timers that fall due fire in
// due order, each receiving the new time.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	var due []*fakeTimer
	for c.timers.Len() > 0 && !c.timers.items[0].due.After(now) {
		due = append(due, heap.Pop(&c.timers).(*fakeTimer))
	}
	c.mu.Unlock()

	for _, timer := range due {
		timer.fire <- now
	}
}

// WaitForTimers blocks until n or more timers are outstanding. Call it
// before Advance when the goroutine under test registers its timer
// asynchronously.
func (c *FakeClock) WaitForTimers(n int) {
	for {
		c.mu.Lock()
		pending, parked := c.timers.Len(), c.parked
		c.mu.Unlock()
		if pending >= n {
			return
		}
		<-parked
	}
}

// Pending reports how many timers have not fired.
func (c *FakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timers.Len()
}

type fakeTimer struct {
	due  time.Time
	fire chan time.Time
	seq  uint64
}

// timerQueue is a min-heap on (due, seq).
type timerQueue struct {
	items []*fakeTimer
	next  uint64
}

func (q *timerQueue) Len() int { return len(q.items) }
func (q *timerQueue) Less(i, j int) bool {
	if q.items[i].due.Equal(q.items[j].due) {
		return q.items[i].seq < q.items[j].seq
	}
	return q.items[i].due.Before(q.items[j].due)
}
func (q *timerQueue) Swap(i, j int) { q.items[i], q.items[j] = q.items[j], q.items[i] }
func (q *timerQueue) Push(x any)    { q.items = append(q.items, x.(*fakeTimer)) }
func (q *timerQueue) Pop() any {
	last := q.items[len(q.items)-1]
	q.items = q.items[:len(q.items)-1]
	return last
}
