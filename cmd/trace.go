package cmd

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/sergev/thomfdc/fdc"
	"github.com/sergev/thomfdc/qdd"
)

var fdcTopics = map[string]int{
	"state":   fdc.TraceState,
	"regs":    fdc.TraceRegs,
	"command": fdc.TraceCommand,
	"stat0":   fdc.TraceStat0,
	"crc":     fdc.TraceCRC,
	"flux":    fdc.TraceFlux,
}

var qddTopics = map[string]int{
	"image": qdd.TraceImage,
	"hw":    qdd.TraceHW,
	"read":  qdd.TraceRead,
	"write": qdd.TraceWrite,
}

// parseTrace splits a topic list into controller and quick disk masks.
func parseTrace(list string) (fdcMask, qddMask int, err error) {
	for _, name := range strings.Split(list, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if name == "all" {
			fdcMask, qddMask = -1, -1
			continue
		}
		f, isFdc := fdcTopics[name]
		q, isQdd := qddTopics[name]
		if !isFdc && !isQdd {
			return 0, 0, fmt.Errorf("unknown trace topic %q", name)
		}
		fdcMask |= f
		qddMask |= q
	}
	return fdcMask, qddMask, nil
}

// traceLogger returns the trace output, or nil when tracing is off.
func traceLogger(mask int) *log.Logger {
	if mask == 0 {
		return nil
	}
	return log.New(os.Stderr, "", log.Lmicroseconds)
}
