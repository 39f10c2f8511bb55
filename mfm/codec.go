package mfm

import "github.com/sergev/thomfdc/crc"

// Address mark patterns
const (
	SyncByte     = 0xA1 // MFM sync byte, written with a missing clock
	SyncClock    = 0x0A // Clock pattern of the sync byte
	IndexMark    = 0xFE // ID address mark
	DataMark     = 0xFB // Data address mark
	GapByte      = 0x4E // Gap filler
	PreambleWord = 0xAAAA
)

// Codec is the live shift-register machinery of the controller: it turns
// a stream of cell decisions into clock/data bytes on read, and data bytes
// into cell decisions on write.
type Codec struct {
	Shift uint16 // Raw history of the last 16 cells
	Data  byte   // Deinterleaved data bits
	Clock byte   // Deinterleaved clock bits
	CRC   uint16 // Running CRC of data-phase bits
	Phase bool   // True when the next cell is a data cell
	Count uint32 // Cells since the last realignment

	SyncData  byte // Programmed sync pattern
	SyncClock byte

	FM         bool // Single-density: every clock cell is a one
	Verbatim   bool // Emit the programmed clock instead of the MFM rule
	ShiftData  byte // Write-side data shift register
	ShiftClock byte // Write-side clock shift register
	LastBit    uint8
}

// PushBit feeds one decoded cell and reports whether the data and clock
// registers now hold the sync pattern.
func (c *Codec) PushBit(bit uint8) bool {
	bit &= 1
	c.Shift = c.Shift<<1 | uint16(bit)
	c.Count++
	if c.Phase {
		c.Data = c.Data<<1 | bit
		c.CRC = crc.Update(c.CRC, bit)
	} else {
		c.Clock = c.Clock<<1 | bit
	}
	c.Phase = !c.Phase

	switch {
	case c.Data == c.SyncData && c.Clock == c.SyncClock:
		return true
	case c.Data == c.SyncClock && c.Clock == c.SyncData:
		// Framed one cell off: swap the halves to realign
		c.Data, c.Clock = c.Clock, c.Data
		c.Phase = !c.Phase
		return true
	}
	return false
}

// Realign forces the clock phase on a run of preamble cells.
func (c *Codec) Realign() {
	if c.Shift == PreambleWord {
		c.Phase = false
	}
}

// Seed primes the CRC with the matched sync byte and restarts byte framing.
func (c *Codec) Seed() {
	c.CRC = crc.OfByte(c.SyncData)
	c.Count = 0
}

// NextBit produces the next cell to write.
func (c *Codec) NextBit() uint8 {
	var bit uint8
	if c.Phase {
		bit = c.ShiftData >> 7
		c.CRC = crc.Update(c.CRC, bit)
		c.ShiftData = c.ShiftData<<1 | c.ShiftData>>7
	} else {
		switch {
		case c.Verbatim:
			bit = c.ShiftClock >> 7
		case c.FM:
			bit = 1
		case c.LastBit != 0 || c.ShiftData>>7 != 0:
			bit = 0
		default:
			bit = 1
		}
		c.ShiftClock = c.ShiftClock<<1 | c.ShiftClock>>7
	}
	c.LastBit = bit
	c.Count++
	c.Phase = !c.Phase
	return bit
}

// Load sets the byte to be written next with its clock pattern.
func (c *Codec) Load(data, clock byte) {
	c.ShiftData = data
	c.ShiftClock = clock
}

// Boundary reports whether the cell counter sits on a byte boundary.
func (c *Codec) Boundary() bool {
	return c.Count&15 == 0
}

// Bytes returns the number of whole bytes since the last realignment.
func (c *Codec) Bytes() int {
	return int(c.Count >> 4)
}
