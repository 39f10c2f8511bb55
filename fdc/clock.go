package fdc

import "time"

// DefaultClockHz is the master clock of the controller and its media.
const DefaultClockHz = 16000000

// Clock tells the controller the current emulated time in ticks.
type Clock interface {
	Now() uint64
}

// ManualClock is a Clock advanced explicitly by its owner.
type ManualClock struct {
	now uint64
}

// Now returns the current time.
func (c *ManualClock) Now() uint64 {
	return c.now
}

// Advance moves the clock forward.
func (c *ManualClock) Advance(ticks uint64) {
	c.now += ticks
}

// Set jumps to an absolute time. Time never goes backwards.
func (c *ManualClock) Set(now uint64) {
	if now > c.now {
		c.now = now
	}
}

// WallClock follows the host time at a fixed tick rate.
type WallClock struct {
	hz    uint64
	start time.Time
}

// NewWallClock starts a clock at tick 0.
func NewWallClock(hz uint64) *WallClock {
	return &WallClock{hz: hz, start: time.Now()}
}

// Now returns the ticks elapsed since the clock was started.
func (c *WallClock) Now() uint64 {
	d := time.Since(c.start)
	sec := uint64(d / time.Second)
	ns := uint64(d % time.Second)
	return sec*c.hz + ns*c.hz/uint64(time.Second)
}
