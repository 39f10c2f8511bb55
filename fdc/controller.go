// Package fdc emulates the Thomson THMFC1 floppy disk controller:
// register interface, bit-level read and write state machine,
// drive selection and motor timing.
package fdc

import (
	"errors"

	"github.com/sergev/thomfdc/mfm"
	"github.com/sergev/thomfdc/pll"
)

// ErrUnsupportedCommand is reported when the host issues a command
// the controller was configured without.
var ErrUnsupportedCommand = errors.New("unsupported controller command")

// MotorOffDelay is the time the motor keeps spinning after the motor
// bit is released, in seconds.
const MotorOffDelay = 2

// Controller is one THMFC1 instance.
type Controller struct {
	clock Clock
	opts  Options

	drives   [2]Drive
	cur      Drive
	unit     unit
	pll      *pll.State
	codec    mfm.Codec
	state    State
	lastSync uint64

	motorOffAt uint64

	cmd0, cmd1, cmd2 byte
	stat0            byte
	rdata, wdata     byte
	clk              byte
	sect, trck       byte
	cell             byte

	prevStat0 byte
	prevState State
	err       error
}

// New creates a controller driven by the given clock.
func New(clock Clock, opts Options) *Controller {
	if opts.ClockHz == 0 {
		opts.ClockHz = DefaultClockHz
	}
	c := &Controller{
		clock:      clock,
		opts:       opts,
		pll:        pll.New(float64(mfm.CellTicks(opts.ClockHz, 250))),
		motorOffAt: pll.Never,
	}
	c.unit = newFluxUnit(nil, c.pll)
	c.Reset()
	return c
}

// AttachDrive connects a drive to select line i (0 or 1).
func (c *Controller) AttachDrive(i int, d Drive) {
	c.drives[i&1] = d
	c.selectDrive()
}

// Reset puts the controller in its power-up state.
func (c *Controller) Reset() {
	now := c.clock.Now()
	c.unit.flush(c.lastSync)
	c.lastSync = now
	c.cmd0, c.cmd1, c.cmd2 = 0, 0, 0
	c.rdata, c.wdata, c.clk = 0, 0, 0
	c.sect, c.trck = 0, 0
	c.cell = byte(mfm.CellTicks(c.opts.ClockHz, 250))
	c.stat0 = S0_FREE
	c.codec = mfm.Codec{}
	c.state = StateIdle
	c.motorOffAt = pll.Never
	c.err = nil
	c.pll.SetClock(float64(c.cell))
	c.pll.Reset(now)
	c.selectDrive()
}

// Err returns the configuration error raised by the last command, if any.
func (c *Controller) Err() error {
	return c.err
}

// State returns the current state of the bit-level machine.
func (c *Controller) State() State {
	return c.state
}

// CellLength returns the programmed cell length in ticks.
func (c *Controller) CellLength() uint64 {
	return uint64(c.cell & 0x7f)
}

// Selected returns the selected drive, or nil.
func (c *Controller) Selected() Drive {
	return c.cur
}

// Sync runs the state machine up to the current time.
func (c *Controller) Sync() {
	now := c.clock.Now()
	c.checkMotor(now)
	if c.unit.needsCell() && c.cell&0x7f == 0 && c.state != StateIdle {
		// No cell length, the machine cannot advance
		c.lastSync = now
		c.unit.reset(now)
		return
	}
	for c.lastSync < now {
		if c.state == StateIdle {
			c.lastSync = now
			break
		}
		if !stateHandlers[c.state](c, now) {
			break
		}
	}
	if c.state != c.prevState {
		c.tracef(TraceState, "fdc: state %v -> %v at %d", c.prevState, c.state, c.lastSync)
		c.prevState = c.state
	}
}

// Read returns the register at the given offset.
func (c *Controller) Read(offset int) byte {
	var v byte
	switch offset & 7 {
	case RegStat0:
		c.Sync()
		v = c.stat0
		if v != c.prevStat0 {
			c.tracef(TraceStat0, "fdc: stat0 %02x", v)
			c.prevStat0 = v
		}
	case RegStat1:
		c.checkMotor(c.clock.Now())
		v = c.stat1()
	case RegData:
		c.Sync()
		v = c.rdata
		c.stat0 &^= S0_BYTE | S0_DREQ
	}
	c.tracef(TraceRegs, "fdc: read %d = %02x", offset&7, v)
	return v
}

// Write stores a value into the register at the given offset.
func (c *Controller) Write(offset int, data byte) {
	c.Sync()
	c.tracef(TraceRegs, "fdc: write %d = %02x", offset&7, data)
	switch offset & 7 {
	case RegCmd0:
		c.command(data)
	case RegCmd1:
		c.cmd1 = data
		c.tracef(TraceCommand, "fdc: cmd1 side=%d size=%d precomp=%d dsyrd=%d",
			(data>>4)&1, SectorSize(data), Precompensation(data), data&C1_DSYRD)
	case RegCmd2:
		c.command2(data)
	case RegData:
		c.wdata = data
		c.codec.SyncData = data
		c.stat0 &^= S0_BYTE | S0_DREQ
	case RegClock:
		c.clk = data
		c.codec.SyncClock = data
	case RegSect:
		c.sect = data
	case RegTrack:
		c.trck = data
	case RegCell:
		c.cell = data
		c.unit.setCell(uint64(data & 0x7f))
	}
}

func (c *Controller) stat1() byte {
	if c.cur == nil {
		return 0
	}
	return c.cur.Status(c.clock.Now()).bits()
}

// command starts a new operation. Any operation in progress is abandoned.
func (c *Controller) command(data byte) {
	c.cmd0 = data
	c.codec.FM = data&C0_FM != 0
	c.unit.flush(c.lastSync)
	c.unit.reset(c.lastSync)
	c.lastSync = c.unit.time()
	c.codec.Count = 0
	c.stat0 &^= S0_FREE | S0_END | S0_BYTE | S0_DREQ

	mode := data & C0_MODE
	c.tracef(TraceCommand, "fdc: cmd0 mode=%d fm=%t ensyn=%t nomck=%t wgc=%t trck=%d sect=%d",
		mode, data&C0_FM != 0, data&C0_ENSYN != 0, data&C0_NOMCK != 0, data&C0_WGC != 0, c.trck, c.sect)

	switch {
	case mode == ModeIdle:
		c.finish(false)
	case mode == ModeWrite && data&C0_WGC != 0:
		c.stat0 &^= S0_CRCER
		c.startFormat()
	case mode == ModeReadHeader && !c.opts.ReadHead:
		c.err = ErrUnsupportedCommand
		c.finish(false)
	default:
		c.stat0 &^= S0_CRCER
		c.setState(StateWaitHeaderSync)
	}
}

// command2 drives the selection and mechanics lines.
func (c *Controller) command2(data byte) {
	now := c.clock.Now()
	prev := c.cmd2
	c.cmd2 = data
	c.selectDrive()

	switch {
	case data&C2_MTON != 0:
		c.motorOffAt = pll.Never
		if c.cur != nil {
			c.cur.SetMotor(true)
		}
	case prev&C2_MTON != 0:
		c.motorOffAt = now + MotorOffDelay*c.opts.ClockHz
	}

	if c.cur != nil {
		side := 1
		if data&C2_SISELB != 0 {
			side = 0
		}
		c.cur.SetSide(side)
		c.cur.SetDirection(data&C2_DIRECB != 0)
		c.cur.SetStep(data&C2_STEP != 0)
	}
}

// selectDrive picks the drive from the select bits and the matching unit.
func (c *Controller) selectDrive() {
	var d Drive
	switch {
	case c.cmd2&C2_DRS0 != 0:
		d = c.drives[0]
	case c.cmd2&C2_DRS1 != 0:
		d = c.drives[1]
	}
	if d == c.cur && c.unit != nil {
		return
	}
	if c.unit != nil {
		c.unit.flush(c.lastSync)
	}
	c.cur = d
	switch m := d.(type) {
	case FluxMedium:
		c.unit = newFluxUnit(m, c.pll)
	case FixedRateMedium:
		c.unit = newByteUnit(m, &c.codec, c.lastSync)
	default:
		c.unit = newFluxUnit(nil, c.pll)
	}
	c.unit.reset(c.lastSync)
}

func (c *Controller) checkMotor(now uint64) {
	if now < c.motorOffAt {
		return
	}
	c.motorOffAt = pll.Never
	if c.cur != nil {
		c.cur.SetMotor(false)
	}
}

func (c *Controller) setState(s State) {
	c.state = s
}

// finish ends the current operation.
func (c *Controller) finish(end bool) {
	c.unit.flush(c.lastSync)
	c.stat0 |= S0_FREE
	if end {
		c.stat0 |= S0_END
	}
	c.setState(StateIdle)
}
