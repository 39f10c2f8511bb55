package fdc

import (
	"fmt"

	"github.com/sergev/thomfdc/mfm"
)

// State of the bit-level machine
type State int

const (
	StateIdle State = iota
	StateWaitHeaderSync
	StateVerifyHeader
	StateReadSkipGap
	StateWriteSkipGap
	StateWaitSectorSync
	StateVerifySector
	StateRead
	StateReadCRC
	StateWriteSectorSync
	StateWriteSector
	StateWriteCRC
	StateFormat
	numStates
)

var stateNames = [numStates]string{
	StateIdle:            "IDLE",
	StateWaitHeaderSync:  "WAIT_HEADER_SYNC",
	StateVerifyHeader:    "VERIFY_HEADER",
	StateReadSkipGap:     "READ_SKIP_GAP",
	StateWriteSkipGap:    "WRITE_SKIP_GAP",
	StateWaitSectorSync:  "WAIT_SECTOR_SYNC",
	StateVerifySector:    "VERIFY_SECTOR",
	StateRead:            "READ",
	StateReadCRC:         "READ_CRC",
	StateWriteSectorSync: "WRITE_SECTOR_SYNC",
	StateWriteSector:     "WRITE_SECTOR",
	StateWriteCRC:        "WRITE_CRC",
	StateFormat:          "FORMAT",
}

func (s State) String() string {
	if s >= 0 && s < numStates {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ParseState converts a state name back to its value.
func ParseState(name string) (State, error) {
	for i, n := range stateNames {
		if n == name {
			return State(i), nil
		}
	}
	return StateIdle, fmt.Errorf("unknown controller state %q", name)
}

// Gap lengths, in bytes, counted after the header CRC
const (
	readGapBytes    = 27 // skipped before looking for the data mark
	writeGapBytes   = 22 // skipped before the data field is written
	sectorSyncBytes = 42 // budget for finding the data mark
	syncZeroBytes   = 12 // zeros written ahead of the data marks
)

// A handler advances the machine by one cell. It returns false when
// the next cell would end after limit.
type handler func(c *Controller, limit uint64) bool

var stateHandlers [numStates]handler

func init() {
	stateHandlers = [numStates]handler{
		StateIdle:            (*Controller).idle,
		StateWaitHeaderSync:  (*Controller).waitHeaderSync,
		StateVerifyHeader:    (*Controller).verifyHeader,
		StateReadSkipGap:     (*Controller).readSkipGap,
		StateWriteSkipGap:    (*Controller).writeSkipGap,
		StateWaitSectorSync:  (*Controller).waitSectorSync,
		StateVerifySector:    (*Controller).verifySector,
		StateRead:            (*Controller).read,
		StateReadCRC:         (*Controller).readCRC,
		StateWriteSectorSync: (*Controller).writeSectorSync,
		StateWriteSector:     (*Controller).writeSector,
		StateWriteCRC:        (*Controller).writeCRC,
		StateFormat:          (*Controller).format,
	}
}

// readBit decodes one cell into the codec.
func (c *Controller) readBit(limit uint64) bool {
	bit, ok := c.unit.decode(limit)
	if !ok {
		return false
	}
	c.lastSync = c.unit.time()
	if c.codec.PushBit(bit) {
		c.stat0 |= S0_SYNC
	} else {
		c.stat0 &^= S0_SYNC
	}
	return true
}

// writeBit encodes one cell from the codec.
func (c *Controller) writeBit(limit uint64) bool {
	if !c.unit.encode(limit, c.codec.NextBit) {
		return false
	}
	c.lastSync = c.unit.time()
	if c.codec.Boundary() {
		c.stat0 |= S0_BYTE
	}
	return true
}

func (c *Controller) sizeCode() byte {
	return SizeCode(c.cmd1)
}

func (c *Controller) sectorBytes() uint32 {
	return uint32(SectorSize(c.cmd1))
}

func (c *Controller) side() byte {
	return (c.cmd1 >> 4) & 1
}

func (c *Controller) mode() byte {
	return c.cmd0 & C0_MODE
}

func (c *Controller) idle(limit uint64) bool {
	c.lastSync = limit
	return false
}

func (c *Controller) waitHeaderSync(limit uint64) bool {
	if !c.readBit(limit) {
		return false
	}
	c.codec.Realign()
	if c.stat0&S0_SYNC != 0 {
		c.codec.Seed()
		c.setState(StateVerifyHeader)
	}
	return true
}

func (c *Controller) waitSectorSync(limit uint64) bool {
	if !c.readBit(limit) {
		return false
	}
	c.codec.Realign()
	switch {
	case c.stat0&S0_SYNC != 0:
		c.codec.Seed()
		c.setState(StateVerifySector)
	case c.codec.Count >= sectorSyncBytes*16:
		c.tracef(TraceState, "fdc: no data mark after sector %d header", c.sect)
		c.setState(StateWaitHeaderSync)
	}
	return true
}

func (c *Controller) verifyHeader(limit uint64) bool {
	if !c.readBit(limit) {
		return false
	}
	if !c.codec.Boundary() {
		return true
	}
	data := c.codec.Data
	anyHeader := c.mode() == ModeReadHeader
	n := c.codec.Bytes()
	valid := true
	switch n {
	case 1, 2:
		valid = c.stat0&S0_SYNC != 0
	case 3:
		valid = data == mfm.IndexMark
	case 4:
		valid = anyHeader || data == c.trck
	case 5:
		valid = anyHeader || data&1 == c.side()
	case 6:
		valid = anyHeader || data == c.sect
	case 7:
		valid = anyHeader || data&3 == c.sizeCode()
	case 9:
		valid = c.codec.CRC == 0
		c.tracef(TraceCRC, "fdc: header crc %04x", c.codec.CRC)
	}
	if anyHeader && n >= 4 {
		c.publish(data)
	}
	if !valid {
		c.setState(StateWaitHeaderSync)
		return true
	}
	if n == 9 {
		c.codec.Count = 0
		switch c.mode() {
		case ModeWrite:
			c.setState(StateWriteSkipGap)
		case ModeReadHeader:
			c.stat0 |= S0_END
			c.setState(StateWaitHeaderSync)
		default:
			c.setState(StateReadSkipGap)
		}
	}
	return true
}

func (c *Controller) readSkipGap(limit uint64) bool {
	if !c.readBit(limit) {
		return false
	}
	if c.codec.Count == readGapBytes*16 {
		c.codec.Count = 0
		c.setState(StateWaitSectorSync)
	}
	return true
}

func (c *Controller) writeSkipGap(limit uint64) bool {
	if !c.readBit(limit) {
		return false
	}
	if c.codec.Count == writeGapBytes*16 {
		c.codec.Count = 0
		c.codec.Load(0, 0)
		c.codec.Verbatim = false
		c.codec.LastBit = uint8(c.codec.Shift & 1)
		c.setState(StateWriteSectorSync)
	}
	return true
}

func (c *Controller) verifySector(limit uint64) bool {
	if !c.readBit(limit) {
		return false
	}
	if !c.codec.Boundary() {
		return true
	}
	valid := true
	switch c.codec.Bytes() {
	case 1, 2:
		valid = c.stat0&S0_SYNC != 0
	case 3:
		valid = c.codec.Data == mfm.DataMark
		if valid {
			c.codec.Count = 0
			c.setState(StateRead)
		}
	}
	if !valid {
		c.setState(StateWaitHeaderSync)
	}
	return true
}

// publish hands a byte to the host. It reports false on overrun.
func (c *Controller) publish(data byte) bool {
	if c.stat0&S0_BYTE != 0 {
		return false
	}
	c.rdata = data
	c.stat0 |= S0_BYTE | S0_DREQ
	return true
}

func (c *Controller) read(limit uint64) bool {
	if !c.readBit(limit) {
		return false
	}
	if !c.codec.Boundary() {
		return true
	}
	if !c.publish(c.codec.Data) {
		c.tracef(TraceState, "fdc: overrun at byte %d of sector %d", c.codec.Bytes(), c.sect)
		if c.opts.Overrun == OverrunAbort {
			if c.codec.CRC != 0 {
				c.stat0 |= S0_CRCER
			}
			c.stat0 |= S0_FREE
			c.setState(StateWaitHeaderSync)
			return true
		}
	}
	if c.codec.Count == c.sectorBytes()*16 {
		c.codec.Count = 0
		c.setState(StateReadCRC)
	}
	return true
}

func (c *Controller) readCRC(limit uint64) bool {
	if !c.readBit(limit) {
		return false
	}
	if c.codec.Count == 32 {
		c.tracef(TraceCRC, "fdc: data crc %04x", c.codec.CRC)
		if c.codec.CRC != 0 {
			c.stat0 |= S0_CRCER
		}
		c.cmd0 &^= C0_MODE
		c.finish(true)
	}
	return true
}

func (c *Controller) writeSectorSync(limit uint64) bool {
	if !c.writeBit(limit) {
		return false
	}
	if c.codec.Count == syncZeroBytes*16 {
		c.codec.Count = 0
		c.codec.CRC = 0xFFFF
		c.codec.Load(c.wdata, c.clk)
		c.codec.Verbatim = true
		c.stat0 |= S0_DREQ
		c.setState(StateWriteSector)
	}
	return true
}

func (c *Controller) writeSector(limit uint64) bool {
	if !c.writeBit(limit) {
		return false
	}
	if !c.codec.Boundary() {
		return true
	}
	if c.codec.Count == (c.sectorBytes()+4)*16 {
		c.codec.Count = 0
		c.codec.ShiftData = byte(c.codec.CRC >> 8)
		c.setState(StateWriteCRC)
		return true
	}
	// An unserviced request repeats the previous byte
	c.codec.Load(c.wdata, c.clk)
	if c.codec.Verbatim && c.wdata != mfm.SyncByte {
		c.codec.Verbatim = false
	}
	c.stat0 |= S0_DREQ
	return true
}

func (c *Controller) writeCRC(limit uint64) bool {
	if !c.writeBit(limit) {
		return false
	}
	if !c.codec.Boundary() {
		return true
	}
	c.codec.ShiftData = byte(c.codec.CRC >> 8)
	if c.codec.Count == 32 {
		c.finish(true)
	}
	return true
}

// startFormat begins writing the raw byte stream fed by the host.
func (c *Controller) startFormat() {
	c.codec.Phase = false
	c.loadFormatByte()
	c.setState(StateFormat)
}

func (c *Controller) loadFormatByte() {
	c.codec.Load(c.wdata, c.clk)
	c.codec.Verbatim = c.wdata == mfm.SyncByte && c.clk == mfm.SyncClock
	c.stat0 |= S0_DREQ
}

func (c *Controller) format(limit uint64) bool {
	if !c.writeBit(limit) {
		return false
	}
	if c.codec.Boundary() {
		c.loadFormatByte()
	}
	return true
}
