package fdc

import (
	"fmt"
	"log"
	"strings"
)

// Trace flags
const (
	TraceState   = 1 << iota // State machine transitions
	TraceRegs                // Register accesses
	TraceCommand             // Decoded commands
	TraceStat0               // Status 0 changes
	TraceCRC                 // CRC results
	TraceFlux                // Committed write spans
)

// OverrunPolicy selects what happens when the host misses a read byte.
type OverrunPolicy int

const (
	// OverrunAbort ends the read, latching CRCER if the CRC is bad.
	OverrunAbort OverrunPolicy = iota

	// OverrunIgnore keeps the unread byte and carries on to the end of the sector.
	OverrunIgnore
)

func (p OverrunPolicy) String() string {
	switch p {
	case OverrunAbort:
		return "abort"
	case OverrunIgnore:
		return "ignore"
	}
	return fmt.Sprintf("OverrunPolicy(%d)", int(p))
}

// ParseOverrunPolicy converts a configuration value to a policy.
func ParseOverrunPolicy(s string) (OverrunPolicy, error) {
	switch strings.ToLower(s) {
	case "", "abort":
		return OverrunAbort, nil
	case "ignore":
		return OverrunIgnore, nil
	}
	return OverrunAbort, fmt.Errorf("unknown overrun policy: %q", s)
}

// Options configure a Controller.
type Options struct {
	ClockHz  uint64
	Overrun  OverrunPolicy
	ReadHead bool // Accept the read-header command
	Logger   *log.Logger
	Trace    int
}

// DefaultOptions returns the settings of the stock controller.
func DefaultOptions() Options {
	return Options{
		ClockHz:  DefaultClockHz,
		ReadHead: true,
	}
}

func (c *Controller) tracef(flag int, format string, args ...any) {
	if c.opts.Logger == nil || c.opts.Trace&flag == 0 {
		return
	}
	c.opts.Logger.Printf(format, args...)
}
