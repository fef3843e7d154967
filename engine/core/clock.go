package core

import (
	"runtime"
	"time"
)

// TickClock paces a fixed-step loop. Wait sleeps for most of the remaining
// time and spins for the last stretch so the tick lands close to its
// deadline even with a coarse scheduler.
type TickClock struct {
	tick    time.Duration
	spin    time.Duration
	start   time.Time
	next    time.Time
	now     func() time.Time
	ticks   uint64
	resyncs uint64
}

func NewTickClock(tick, spin time.Duration) *TickClock {
	return &TickClock{
		tick: tick,
		spin: spin,
		now:  time.Now,
	}
}

// Starts the clock. The first deadline is one tick away.
func (c *TickClock) Start() {
	c.start = c.now()
	c.next = c.start.Add(c.tick)
	c.ticks = 0
	c.resyncs = 0
}

// Wait blocks until the next deadline and returns the time the tick began.
// When the caller is already late by a whole tick or more, the schedule is
// reset instead of trying to catch up.
func (c *TickClock) Wait() time.Time {
	now := c.now()
	if now.After(c.next) {
		if now.Sub(c.next) >= c.tick {
			c.resyncs++
			c.next = now
		}
	} else {
		if remaining := c.next.Sub(now); remaining > c.spin {
			time.Sleep(remaining - c.spin)
		}
		for c.now().Before(c.next) {
			runtime.Gosched()
		}
	}

	tickStart := c.next
	c.next = c.next.Add(c.tick)
	c.ticks++
	return tickStart
}

func (c *TickClock) Tick() time.Duration {
	return c.tick
}

func (c *TickClock) Ticks() uint64 {
	return c.ticks
}

// Resyncs counts how many times the loop fell behind and was rescheduled.
func (c *TickClock) Resyncs() uint64 {
	return c.resyncs
}

func (c *TickClock) Elapsed() time.Duration {
	return c.now().Sub(c.start)
}
