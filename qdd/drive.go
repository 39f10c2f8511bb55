package qdd

import (
	"fmt"
	"log"

	"github.com/sergev/thomfdc/fdc"
)

// Trace flags
const (
	TraceImage = 1 << iota // Image load and unload
	TraceHW                // Drive signals
	TraceRead              // Bytes read
	TraceWrite             // Bytes written
)

// Options configure a Drive.
type Options struct {
	ClockHz  uint64
	Checksum Checksum
	Logger   *log.Logger
	Trace    int
}

// Drive is a quick disk drive. The byte cursor runs while the motor is
// commanded and stops at the end of the track once the command drops.
// It implements fdc.FixedRateMedium.
type Drive struct {
	clock fdc.Clock
	opts  Options

	track          []byte
	image          []byte
	present        bool
	writeProtected bool
	motorOn        bool // Motor input from the controller
	motorCmd       bool // Motor latch of the drive mechanics
	writeGate      bool
	ready          bool
	dirty          bool
	offset         int

	running bool
	epoch   uint64 // Time of byte zero of the running timer
	count   uint64 // Bytes elapsed since epoch
}

// NewDrive creates an empty drive.
func NewDrive(clock fdc.Clock, opts Options) *Drive {
	if opts.ClockHz == 0 {
		opts.ClockHz = fdc.DefaultClockHz
	}
	return &Drive{clock: clock, opts: opts}
}

func (d *Drive) tracef(flag int, format string, args ...any) {
	if d.opts.Logger == nil || d.opts.Trace&flag == 0 {
		return
	}
	d.opts.Logger.Printf("qdd [%d/%d] "+format, append([]any{d.offset, TrackLen}, args...)...)
}

// Insert loads a 400-sector image.
func (d *Drive) Insert(image []byte, writeProtected bool) error {
	d.advance(d.clock.Now())
	track, err := BuildTrack(image, d.opts.Checksum)
	if err != nil {
		return err
	}
	d.image = append([]byte(nil), image...)
	d.track = track
	d.present = true
	d.writeProtected = writeProtected
	d.dirty = false
	d.offset = 0
	d.tracef(TraceHW, "disk present, write protect %t", writeProtected)
	return nil
}

// Eject unloads the disk. The returned image holds every sector that
// was read back intact. A damaged track yields the partial image and
// an error wrapping ErrUnload.
func (d *Drive) Eject() ([]byte, error) {
	d.advance(d.clock.Now())
	if !d.present {
		return nil, fmt.Errorf("no disk in the quick disk drive")
	}
	image := d.image
	var err error
	if d.dirty {
		var n int
		n, err = UnloadTrack(d.track, image, d.opts.Checksum)
		d.tracef(TraceImage, "unload: %d sectors committed", n)
	}
	d.track = nil
	d.image = nil
	d.present = false
	d.setMotor(false, d.clock.Now())
	d.tracef(TraceHW, "media unset")
	return image, err
}

// Track returns the live track buffer.
func (d *Drive) Track() []byte {
	return d.track
}

// Present reports the media sense line.
func (d *Drive) Present() bool {
	d.advance(d.clock.Now())
	return d.present
}

// Ready reports the ready line.
func (d *Drive) Ready() bool {
	d.advance(d.clock.Now())
	return d.ready
}

// WriteProtected reports the write protect line.
func (d *Drive) WriteProtected() bool {
	return d.present && d.writeProtected
}

// MotorCommand reports the motor latch of the mechanics.
func (d *Drive) MotorCommand() bool {
	d.advance(d.clock.Now())
	return d.motorCmd
}

// Offset returns the byte cursor.
func (d *Drive) Offset() int {
	d.advance(d.clock.Now())
	return d.offset
}

// SetWriteGate drives the write gate line.
func (d *Drive) SetWriteGate(on bool) {
	d.advance(d.clock.Now())
	d.writeGate = on
}

func (d *Drive) bytePeriod() uint64 {
	return 8 * d.opts.ClockHz / BitRate
}

// byteTime returns when byte n of the running timer fires. The timer
// runs on whole byte periods, the same grid a controller samples on.
func (d *Drive) byteTime(n uint64) uint64 {
	return d.epoch + n*d.bytePeriod()
}

// advance runs the byte timer up to the given time.
func (d *Drive) advance(now uint64) {
	for d.running && d.byteTime(d.count) <= now {
		d.tick()
		d.count++
	}
}

// tick is one byte time of the spindle.
func (d *Drive) tick() {
	prev := d.ready
	d.ready = d.offset > HeadReadSwPos && d.offset < MotorStopSwPos
	if d.ready != prev {
		d.tracef(TraceHW, "ready %t", d.ready)
	}
	if d.offset >= MotorStopSwPos && d.motorCmd && (!d.motorOn || d.writeGate) {
		d.motorCmd = false
		d.tracef(TraceHW, "motor command off")
	}
	d.offset++
	if d.offset == TrackLen {
		d.offset = 0
		d.tracef(TraceHW, "end of track")
		if !d.motorCmd {
			d.running = false
		}
	}
}

func (d *Drive) setMotor(on bool, now uint64) {
	d.advance(now)
	prev := d.motorOn
	d.motorOn = on
	if on != prev {
		d.tracef(TraceHW, "motor on %t", on)
	}
	if on && !prev {
		if !d.running {
			d.running = true
			d.epoch = now
			d.count = 0
		}
		if !d.motorCmd {
			d.motorCmd = true
			d.tracef(TraceHW, "motor command on")
		}
	}
}

// write stores a byte under the head, when the drive accepts it.
func (d *Drive) write(b byte) {
	if d.motorOn && d.present && d.ready && d.writeGate && !d.writeProtected {
		d.tracef(TraceWrite, "write %02x replace %02x", b, d.track[d.offset])
		d.track[d.offset] = b
		d.dirty = true
	}
}

// read returns the byte under the head, or zero before the data area.
func (d *Drive) read() byte {
	if d.motorOn && d.present && d.ready && d.offset > DataReadyPos {
		d.tracef(TraceRead, "read %02x", d.track[d.offset])
		return d.track[d.offset]
	}
	return 0
}

// Status reports the drive lines to a controller.
func (d *Drive) Status(now uint64) fdc.DriveStatus {
	d.advance(now)
	return fdc.DriveStatus{
		Index:          d.present && d.offset < HeadReadSwPos,
		WriteProtected: d.WriteProtected(),
		Ready:          d.ready,
		Track0:         true,
		DiskChanged:    !d.present,
		MotorOn:        d.motorOn,
	}
}

// SetSide is a no-op: the medium has one side.
func (d *Drive) SetSide(int) {}

// SetDirection is a no-op: the head follows the spiral.
func (d *Drive) SetDirection(bool) {}

// SetStep is a no-op.
func (d *Drive) SetStep(bool) {}

// SetMotor drives the motor input.
func (d *Drive) SetMotor(on bool) {
	d.setMotor(on, d.clock.Now())
}

// BytePeriod returns the byte time in clock ticks.
func (d *Drive) BytePeriod() uint64 {
	return d.bytePeriod()
}

// ByteAt returns the byte under the head at the given time.
func (d *Drive) ByteAt(at uint64) byte {
	d.advance(at)
	return d.read()
}

// PutByte records a byte at the given time. A controller writing
// data holds the write gate for the byte.
func (d *Drive) PutByte(at uint64, b byte) {
	d.advance(at)
	gate := d.writeGate
	d.writeGate = true
	d.write(b)
	d.writeGate = gate
}
