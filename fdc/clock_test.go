package fdc_test

import (
	"testing"
	"time"

	"github.com/sergev/thomfdc/fdc"
)

func TestManualClock(t *testing.T) {
	var c fdc.ManualClock
	c.Advance(100)
	c.Set(50)
	if c.Now() != 100 {
		t.Errorf("Now() = %d after a backward Set, expected 100", c.Now())
	}
	c.Set(300)
	if c.Now() != 300 {
		t.Errorf("Now() = %d, expected 300", c.Now())
	}
}

func TestWallClock(t *testing.T) {
	c := fdc.NewWallClock(fdc.DefaultClockHz)
	first := c.Now()
	time.Sleep(2 * time.Millisecond)
	second := c.Now()
	if second < first+2*fdc.DefaultClockHz/1000 {
		t.Errorf("Now() advanced by %d ticks in 2ms, expected at least %d", second-first, 2*fdc.DefaultClockHz/1000)
	}
}
