package pll

import (
	"math"
	"math/rand"
	"testing"
)

// transitionsAt places one transition at the centre of every cell of
// the given spacing.
func transitionsAt(spacing float64, count int) []uint64 {
	transitions := make([]uint64, count)
	for i := range transitions {
		transitions[i] = uint64(float64(i)*spacing + spacing/2)
	}
	return transitions
}

func TestSetClock(t *testing.T) {
	pll := New(32)
	if pll.MinPeriod != 24 || pll.MaxPeriod != 40 {
		t.Errorf("period range = [%v, %v], expected [24, 40]", pll.MinPeriod, pll.MaxPeriod)
	}
	if pll.AdjustBase != 1.6 {
		t.Errorf("AdjustBase = %v, expected 1.6", pll.AdjustBase)
	}
	if pll.IsWriting() {
		t.Errorf("new PLL should not be writing")
	}
}

func TestStability(t *testing.T) {
	for _, period := range []float64{32, 64, 1000} {
		src := NewFluxIterator(transitionsAt(period, 10002))
		pll := New(period)
		for i := 0; i < 10000; i++ {
			bit, ok := pll.NextBit(src, Never)
			if !ok {
				t.Fatalf("period %v: cell %d suspended", period, i)
			}
			if bit != 1 {
				t.Fatalf("period %v: cell %d decoded as 0", period, i)
			}
		}
		if pll.Period != period {
			t.Errorf("period %v: tracked period = %v after 10000 cells", period, pll.Period)
		}
	}
}

func TestConvergence(t *testing.T) {
	const nominal = 1000.0
	const actual = nominal * 1.05
	src := NewFluxIterator(transitionsAt(actual, 20000))
	pll := New(nominal)
	zeros := 0
	for i := 0; i < 5000; i++ {
		bit, _ := pll.NextBit(src, Never)
		if pll.Period < pll.MinPeriod || pll.Period > pll.MaxPeriod {
			t.Fatalf("cell %d: period %v outside [%v, %v]", i, pll.Period, pll.MinPeriod, pll.MaxPeriod)
		}
		if i >= 500 {
			if math.Abs(pll.Period-actual)/actual > 0.02 {
				t.Fatalf("cell %d: period = %v, expected within 2%% of %v", i, pll.Period, actual)
			}
			if bit == 0 {
				zeros++
			}
		}
	}
	if zeros != 0 {
		t.Errorf("decoded %d zero cells after lock", zeros)
	}
}

func TestClamp(t *testing.T) {
	// A stream 40% slower than nominal drives the period to its ceiling.
	src := NewFluxIterator(transitionsAt(1400, 5000))
	pll := New(1000)
	for i := 0; i < 4000; i++ {
		pll.NextBit(src, Never)
		if pll.Period > pll.MaxPeriod {
			t.Fatalf("cell %d: period %v above max %v", i, pll.Period, pll.MaxPeriod)
		}
	}
}

func TestSuspend(t *testing.T) {
	src := NewFluxIterator(transitionsAt(32, 100))
	pll := New(32)
	if _, ok := pll.NextBit(src, 31); ok {
		t.Fatalf("NextBit() with limit before cell end should suspend")
	}
	if pll.Time != 0 {
		t.Errorf("Time = %d after suspend, expected 0", pll.Time)
	}
	bit, ok := pll.NextBit(src, 32)
	if !ok || bit != 1 {
		t.Errorf("NextBit() = %d, %v, expected 1, true", bit, ok)
	}
}

func TestNeverIsZero(t *testing.T) {
	pll := New(32)
	pll.PhaseAdjust = 5
	bit, ok := pll.NextBit(nil, Never)
	if !ok || bit != 0 {
		t.Errorf("NextBit(nil) = %d, %v, expected 0, true", bit, ok)
	}
	if pll.PhaseAdjust != 0 || pll.Period != 32 {
		t.Errorf("free run changed loop: phase %v, period %v", pll.PhaseAdjust, pll.Period)
	}
}

func TestJitter(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	transitions := transitionsAt(32, 10002)
	for i := range transitions {
		transitions[i] = uint64(int64(transitions[i]) + int64(rng.Intn(9)-4))
	}
	src := NewFluxIterator(transitions)
	pll := New(32)
	for i := 0; i < 10000; i++ {
		if bit, _ := pll.NextBit(src, Never); bit != 1 {
			t.Fatalf("cell %d decoded as 0 with +/-4 tick jitter", i)
		}
	}
}

type recorder struct {
	spans [][2]uint64
	flux  []uint64
}

func (r *recorder) WriteFlux(start, end uint64, transitions []uint64) {
	r.spans = append(r.spans, [2]uint64{start, end})
	r.flux = append(r.flux, transitions...)
}

func TestWrite(t *testing.T) {
	pll := New(32)
	pll.Reset(100)
	sink := &recorder{}
	pattern := []bool{true, false, true, true, false}
	for i := 0; i < 40; i++ {
		if !pll.WriteNextBit(pattern[i%len(pattern)], sink, Never) {
			t.Fatalf("WriteNextBit() suspended")
		}
	}
	// 24 ones in 40 cells: no commit yet
	if len(sink.spans) != 0 {
		t.Fatalf("committed %d spans before the buffer filled", len(sink.spans))
	}
	if pll.Pending() != 24 {
		t.Errorf("Pending() = %d, expected 24", pll.Pending())
	}
	for i := 40; i < 60; i++ {
		pll.WriteNextBit(pattern[i%len(pattern)], sink, Never)
	}
	if len(sink.spans) != 1 || len(sink.flux) != WRITE_BUFFER_SIZE {
		t.Fatalf("got %d spans with %d transitions, expected one full buffer", len(sink.spans), len(sink.flux))
	}
	pll.StopWriting(sink, pll.Time)
	if pll.IsWriting() {
		t.Errorf("StopWriting() left the span open")
	}
	if sink.spans[0][0] != 100 || sink.spans[len(sink.spans)-1][1] != 100+60*32 {
		t.Errorf("spans = %v, expected to cover [100, %d)", sink.spans, 100+60*32)
	}
	if len(sink.flux) != 36 {
		t.Errorf("wrote %d transitions, expected 36", len(sink.flux))
	}
	for i, tr := range sink.flux {
		if (tr-100)%32 != 16 {
			t.Errorf("transition %d at %d is not at cell centre", i, tr)
			break
		}
	}
}

func TestWriteSuspend(t *testing.T) {
	pll := New(32)
	sink := &recorder{}
	if pll.WriteNextBit(true, sink, 31) {
		t.Errorf("WriteNextBit() past limit should suspend")
	}
	if pll.Pending() != 0 {
		t.Errorf("suspended write buffered a transition")
	}
}

func TestFluxPattern(t *testing.T) {
	// 1 0 1 1 0 0 1 pattern at 32 ticks per cell
	pattern := []int{1, 0, 1, 1, 0, 0, 1}
	var transitions []uint64
	for i, b := range pattern {
		if b == 1 {
			transitions = append(transitions, uint64(i*32+16))
		}
	}
	src := NewFluxIterator(transitions)
	pll := New(32)
	for i := range pattern {
		bit, _ := pll.NextBit(src, Never)
		if int(bit) != pattern[i] {
			t.Errorf("bit %d = %d, expected %d", i, bit, pattern[i])
		}
	}
}
