package qdd

import "github.com/sergev/thomfdc/fdc"

// SerialAdapter is the synchronous serial chip the drive is wired to.
type SerialAdapter interface {
	// MotorRequest samples the motor-on output of the chip.
	MotorRequest() bool

	// SetClearToSend drives the clear-to-send input, wired to the
	// write protect line of the drive.
	SetClearToSend(asserted bool)

	// TxByte takes the next byte to transmit. Underflow is reported
	// when the host has not supplied one.
	TxByte() (b byte, underflow bool)

	// RxByte delivers a received byte.
	RxByte(b byte)
}

// Bridge registers
const (
	StatusDiskAbsent = 0x40
	StatusNotReady   = 0x80

	WriteGateOff = 0x80 // write gate register, active low
)

// Bridge is the CQ 90-028 glue between a serial chip and one drive.
// Every byte time it forwards the motor request, exchanges one byte in
// each direction and reflects write protect back to the chip.
type Bridge struct {
	clock   fdc.Clock
	drive   *Drive
	adapter SerialAdapter

	wrga   byte
	reg    byte
	status byte
	prev   byte

	epoch uint64
	count uint64
}

// NewBridge ties a drive to a serial adapter. The byte timer starts now.
func NewBridge(clock fdc.Clock, drive *Drive, adapter SerialAdapter) *Bridge {
	b := &Bridge{clock: clock, drive: drive, adapter: adapter, epoch: clock.Now()}
	b.Reset()
	return b
}

// Reset clears the bridge registers.
func (b *Bridge) Reset() {
	b.wrga = WriteGateOff
	b.reg = 0
	b.status = 0
	b.drive.SetWriteGate(false)
}

// Sync runs the byte timer up to now.
func (b *Bridge) Sync() {
	now := b.clock.Now()
	for {
		at := b.epoch + b.count*b.drive.bytePeriod()
		if at > now {
			break
		}
		b.tick(at)
		b.count++
	}
	b.drive.advance(now)
}

func (b *Bridge) tick(at uint64) {
	d := b.drive
	motor := b.adapter.MotorRequest()
	d.setMotor(motor, at)
	b.adapter.SetClearToSend(d.WriteProtected())
	if !motor {
		return
	}
	if b.wrga&WriteGateOff == 0 {
		if data, underflow := b.adapter.TxByte(); !underflow {
			d.write(data)
		}
	}
	b.adapter.RxByte(d.read())
}

// SetWriteGate writes the write gate register.
func (b *Bridge) SetWriteGate(data byte) {
	b.Sync()
	b.wrga = data
	b.drive.SetWriteGate(data&WriteGateOff == 0)
	b.drive.tracef(TraceHW, "write gate register %02x", data)
}

// SetReg writes the auxiliary register.
func (b *Bridge) SetReg(data byte) {
	b.Sync()
	b.reg = data
}

// Status reads the status register.
func (b *Bridge) Status() byte {
	b.Sync()
	b.status = 0
	if !b.drive.present {
		b.status |= StatusDiskAbsent
	}
	if !b.drive.ready {
		b.status |= StatusNotReady
	}
	if b.status != b.prev {
		b.drive.tracef(TraceHW, "bridge status %02x", b.status)
		b.prev = b.status
	}
	return b.status
}
