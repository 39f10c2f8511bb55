package mfm

import (
	"github.com/sergev/thomfdc/pll"
)

// Decoder recovers MFM bitcells from flux transitions using the PLL.
type Decoder struct {
	source *pll.FluxIterator
	pll    *pll.State
}

// NewDecoder creates a decoder over sorted transition times,
// clocked at the given cell length in ticks.
func NewDecoder(transitions []uint64, cellTicks uint64) *Decoder {
	return &Decoder{
		source: pll.NewFluxIterator(transitions),
		pll:    pll.New(float64(cellTicks)),
	}
}

// NextBit returns the next bitcell.
func (d *Decoder) NextBit() bool {
	bit, _ := d.pll.NextBit(d.source, pll.Never)
	return bit != 0
}

// Time returns the end of the last decoded cell.
func (d *Decoder) Time() uint64 {
	return d.pll.Time
}

// Bitstream decodes halfBits cells and packs them MSB first.
func (d *Decoder) Bitstream(halfBits int) []byte {
	out := make([]byte, (halfBits+7)/8)
	for i := 0; i < halfBits; i++ {
		if d.NextBit() {
			out[i/8] |= 1 << (7 - uint(i%8))
		}
	}
	return out
}
