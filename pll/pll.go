package pll

import "math"

// PLL constants, as fractions of the nominal cell period.
const (
	// MIN_PERIOD_PCT is the lower clamp of the tracked period
	MIN_PERIOD_PCT = 75
	// MAX_PERIOD_PCT is the upper clamp of the tracked period
	MAX_PERIOD_PCT = 125
	// PERIOD_ADJ_PCT scales the frequency correction
	PERIOD_ADJ_PCT = 5
	// PHASE_ADJ_PCT is the share of the phase error applied to the next window
	PHASE_ADJ_PCT = 65
	// WRITE_BUFFER_SIZE is the number of flux transitions held before a commit
	WRITE_BUFFER_SIZE = 32
)

// Never marks the absence of a transition.
const Never = math.MaxUint64

// TransitionSource provides flux transitions of the medium under the head.
type TransitionSource interface {
	// NextTransition returns the time of the first transition strictly
	// after the given tick, or Never.
	NextTransition(after uint64) uint64
}

// FluxSink accepts flux written by the controller.
type FluxSink interface {
	// WriteFlux replaces the medium contents between start and end
	// with the given transitions.
	WriteFlux(start, end uint64, transitions []uint64)
}

// State represents a digital phase-locked loop that turns flux transitions
// into cell decisions. All times are in clock ticks.
type State struct {
	PeriodIdeal float64 // Commanded cell period
	Period      float64 // Currently tracked cell period
	MinPeriod   float64
	MaxPeriod   float64
	AdjustBase  float64 // Frequency correction gain
	PhaseAdjust float64 // Phase offset applied to the next window
	FreqHist    int     // Signed run length of same-direction corrections
	Time        uint64  // Start of the current cell window

	WriteStart  uint64 // Start of the pending write span, Never when not writing
	writeBuffer [WRITE_BUFFER_SIZE]uint64
	writeCount  int
}

// New returns a PLL clocked at the given period and positioned at time zero.
func New(period float64) *State {
	pll := &State{}
	pll.SetClock(period)
	pll.Reset(0)
	return pll
}

// SetClock sets the nominal cell period and the tracking range around it.
func (pll *State) SetClock(period float64) {
	pll.PeriodIdeal = period
	pll.Period = period
	pll.AdjustBase = period * PERIOD_ADJ_PCT / 100
	pll.MinPeriod = period * MIN_PERIOD_PCT / 100
	pll.MaxPeriod = period * MAX_PERIOD_PCT / 100
}

// Reset positions the PLL at the given time and drops any write span.
func (pll *State) Reset(when uint64) {
	pll.ReadReset(when)
	pll.writeCount = 0
	pll.WriteStart = Never
}

// ReadReset positions the PLL at the given time and clears the phase
// and frequency history.
func (pll *State) ReadReset(when uint64) {
	pll.Time = when
	pll.PhaseAdjust = 0
	pll.FreqHist = 0
}

// NextBit decodes the next cell from the source.
// It returns ok=false without any change when the cell would end after limit.
func (pll *State) NextBit(source TransitionSource, limit uint64) (bit uint8, ok bool) {
	edge := uint64(Never)
	if source != nil {
		edge = source.NextTransition(pll.Time)
	}
	return pll.FeedReadData(edge, limit)
}

// FeedReadData decides the next cell given the first transition after the
// current window start.
func (pll *State) FeedReadData(edge, limit uint64) (bit uint8, ok bool) {
	next := advance(pll.Time, pll.Period+pll.PhaseAdjust)
	if next > limit {
		return 0, false
	}
	pll.Time = next

	if edge == Never || edge > next {
		// Empty window: zero, free running
		pll.PhaseAdjust = 0
		return 0, true
	}

	// Transition inside the window: one, and the loop is corrected
	delta := float64(edge) - (float64(next) - pll.Period/2)
	pll.PhaseAdjust = delta * PHASE_ADJ_PCT / 100

	switch {
	case delta < 0:
		if pll.FreqHist < 0 {
			pll.FreqHist--
		} else {
			pll.FreqHist = -1
		}
	case delta > 0:
		if pll.FreqHist > 0 {
			pll.FreqHist++
		} else {
			pll.FreqHist = 1
		}
	default:
		pll.FreqHist = 0
	}

	if pll.FreqHist > 1 || pll.FreqHist < -1 {
		pll.Period += pll.AdjustBase * delta / pll.Period
		if pll.Period < pll.MinPeriod {
			pll.Period = pll.MinPeriod
		} else if pll.Period > pll.MaxPeriod {
			pll.Period = pll.MaxPeriod
		}
	}
	return 1, true
}

// advance adds a fractional duration to a tick count, rounding to the
// nearest tick. Time always moves by at least one tick.
func advance(t uint64, d float64) uint64 {
	if d < 1 {
		return t + 1
	}
	return t + uint64(math.Round(d))
}
