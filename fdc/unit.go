package fdc

import (
	"github.com/sergev/thomfdc/mfm"
	"github.com/sergev/thomfdc/pll"
)

// unit moves cells between the codec and the selected medium.
type unit interface {
	// decode reads one cell, or returns false when the cell
	// would end after limit.
	decode(limit uint64) (bit uint8, ok bool)

	// encode writes the cell produced by next, or returns false
	// without calling next when the cell would end after limit.
	encode(limit uint64, next func() uint8) bool

	// flush commits pending writes up to the given time.
	flush(when uint64)

	// reset restarts bit timing at the given time.
	reset(when uint64)

	// setCell programs the nominal cell length.
	setCell(cell uint64)

	// time returns the end of the last processed cell.
	time() uint64

	// needsCell reports whether a zero cell length stalls the unit.
	needsCell() bool
}

// fluxUnit recovers cells from flux transitions with a PLL.
// A nil medium reads as blank and discards writes.
type fluxUnit struct {
	medium FluxMedium
	pll    *pll.State
}

func newFluxUnit(medium FluxMedium, p *pll.State) *fluxUnit {
	return &fluxUnit{medium: medium, pll: p}
}

func (u *fluxUnit) source() pll.TransitionSource {
	if u.medium == nil {
		return nil
	}
	return u.medium
}

func (u *fluxUnit) sink() pll.FluxSink {
	if u.medium == nil {
		return nil
	}
	return u.medium
}

func (u *fluxUnit) decode(limit uint64) (uint8, bool) {
	return u.pll.NextBit(u.source(), limit)
}

func (u *fluxUnit) encode(limit uint64, next func() uint8) bool {
	if u.pll.CellEnd() > limit {
		return false
	}
	return u.pll.WriteNextBit(next() != 0, u.sink(), limit)
}

func (u *fluxUnit) flush(when uint64) {
	if u.pll.IsWriting() {
		u.pll.StopWriting(u.sink(), when)
	}
}

func (u *fluxUnit) reset(when uint64) {
	u.pll.ReadReset(when)
}

func (u *fluxUnit) setCell(cell uint64) {
	if cell != 0 {
		u.pll.SetClock(float64(cell))
	}
}

func (u *fluxUnit) time() uint64 {
	return u.pll.Time
}

func (u *fluxUnit) needsCell() bool {
	return true
}

// byteUnit serializes whole bytes of a fixed-rate medium into cells.
// Every byte is presented as sixteen cells with all clock bits set,
// and the codec phase is pinned to the byte framing.
type byteUnit struct {
	medium FixedRateMedium
	codec  *mfm.Codec
	period uint64 // ticks per byte
	start  uint64 // start of the current byte
	index  int    // cell within the current byte
	now    uint64
	rbyte  byte
	wbyte  byte
}

func newByteUnit(medium FixedRateMedium, codec *mfm.Codec, when uint64) *byteUnit {
	u := &byteUnit{medium: medium, codec: codec, period: medium.BytePeriod()}
	if u.period < 16 {
		u.period = 16
	}
	u.reset(when)
	return u
}

func (u *byteUnit) cellEnd() uint64 {
	return u.start + uint64(u.index+1)*u.period/16
}

func (u *byteUnit) step() {
	u.now = u.cellEnd()
	u.index++
	if u.index == 16 {
		u.index = 0
		u.start += u.period
	}
}

func (u *byteUnit) decode(limit uint64) (uint8, bool) {
	end := u.cellEnd()
	if end > limit {
		return 0, false
	}
	if u.index == 0 {
		u.rbyte = u.medium.ByteAt(u.start)
		u.codec.Phase = false
	}
	bit := uint8(1)
	if u.index&1 != 0 {
		bit = u.rbyte >> (7 - u.index/2) & 1
	}
	u.step()
	return bit, true
}

func (u *byteUnit) encode(limit uint64, next func() uint8) bool {
	if u.cellEnd() > limit {
		return false
	}
	if u.index == 0 {
		u.codec.Phase = false
		u.wbyte = 0
	}
	bit := next()
	if u.index&1 != 0 {
		u.wbyte = u.wbyte<<1 | bit
	}
	if u.index == 15 {
		u.medium.PutByte(u.start, u.wbyte)
	}
	u.step()
	return true
}

func (u *byteUnit) flush(when uint64) {}

// reset aligns to the next byte boundary of the medium.
func (u *byteUnit) reset(when uint64) {
	u.start = (when + u.period - 1) / u.period * u.period
	u.index = 0
	u.now = when
}

func (u *byteUnit) setCell(cell uint64) {}

func (u *byteUnit) time() uint64 {
	return u.now
}

func (u *byteUnit) needsCell() bool {
	return false
}
