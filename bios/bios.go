// Package bios drives the controller through its registers the way the
// Thomson disk firmware does: select, seek, then poll the status
// register while moving bytes.
package bios

import (
	"errors"
	"fmt"

	"github.com/sergev/thomfdc/fdc"
	"github.com/sergev/thomfdc/mfm"
)

var (
	ErrNotFound       = errors.New("sector not found")
	ErrCRC            = errors.New("CRC error")
	ErrLostData       = errors.New("lost data")
	ErrWriteProtected = errors.New("disk is write protected")
)

// Clock is a clock the firmware can wait on.
type Clock interface {
	fdc.Clock
	Advance(ticks uint64)
}

// Options tune the firmware loops.
type Options struct {
	PollTicks   uint64 // Time between status polls
	Revolutions uint64 // Revolutions allowed to find a sector
	Revolution  uint64 // Ticks per revolution of the medium
	MaxCyls     int    // Steps allowed when recalibrating

	// OnPoll is called after every status poll.
	OnPoll func(stat0 byte)
}

// DefaultOptions suit a 300 rpm disk on a 16 MHz clock.
func DefaultOptions() Options {
	return Options{
		PollTicks:   128,
		Revolutions: 3,
		Revolution:  mfm.RevolutionTicks(fdc.DefaultClockHz, 300),
		MaxCyls:     85,
	}
}

// Host is the firmware side of one controller.
type Host struct {
	ctl   *fdc.Controller
	clock Clock
	opts  Options

	drive int
	side  int
	cyl   int // -1 until recalibrated
}

// New attaches the firmware to a controller.
func New(ctl *fdc.Controller, clock Clock, opts Options) *Host {
	if opts.PollTicks == 0 {
		opts.PollTicks = 128
	}
	if opts.Revolutions == 0 {
		opts.Revolutions = 3
	}
	if opts.Revolution == 0 {
		opts.Revolution = mfm.RevolutionTicks(fdc.DefaultClockHz, 300)
	}
	if opts.MaxCyls == 0 {
		opts.MaxCyls = 85
	}
	return &Host{ctl: ctl, clock: clock, opts: opts, cyl: -1}
}

func (h *Host) poll() byte {
	h.clock.Advance(h.opts.PollTicks)
	st := h.ctl.Read(fdc.RegStat0)
	if h.opts.OnPoll != nil {
		h.opts.OnPoll(st)
	}
	return st
}

func (h *Host) cmd2(extra byte) {
	h.ctl.Write(fdc.RegCmd2, fdc.Cmd2(h.drive, h.side, true)|extra)
}

// Select picks the drive and side and starts the motor.
func (h *Host) Select(drive, side int) {
	if drive != h.drive {
		h.cyl = -1
	}
	h.drive = drive
	h.side = side
	h.cmd2(0)
}

// Stop releases the motor bit. The controller stops the motor later.
func (h *Host) Stop() {
	h.ctl.Write(fdc.RegCmd2, fdc.Cmd2(h.drive, h.side, false))
}

func (h *Host) step(inward bool) {
	var dir byte
	if inward {
		dir = fdc.C2_DIRECB
	}
	h.cmd2(dir | fdc.C2_STEP)
	h.cmd2(dir)
}

// Recalibrate steps out to track 0.
func (h *Host) Recalibrate() error {
	for i := 0; i < h.opts.MaxCyls; i++ {
		if h.ctl.Read(fdc.RegStat1)&fdc.S1_TRK0 != 0 {
			h.cyl = 0
			return nil
		}
		h.step(false)
	}
	return fmt.Errorf("track 0 not found after %d steps", h.opts.MaxCyls)
}

// Seek moves the head to a cylinder.
func (h *Host) Seek(cyl int) error {
	if h.cyl < 0 {
		if err := h.Recalibrate(); err != nil {
			return err
		}
	}
	for h.cyl < cyl {
		h.step(true)
		h.cyl++
	}
	for h.cyl > cyl {
		h.step(false)
		h.cyl--
	}
	return nil
}

// position seeks and programs the registers of a sector transfer.
// Thomson headers always carry side 0, the side is chosen by the
// select lines only.
func (h *Host) position(track, side, sector, size int) error {
	h.Select(h.drive, side)
	if err := h.Seek(track); err != nil {
		return err
	}
	h.ctl.Write(fdc.RegTrack, byte(track))
	h.ctl.Write(fdc.RegSect, byte(sector))
	h.ctl.Write(fdc.RegCmd1, fdc.Cmd1(0, mfm.SizeCode(size)))
	h.ctl.Write(fdc.RegData, mfm.SyncByte)
	h.ctl.Write(fdc.RegClock, mfm.SyncClock)
	return nil
}

func (h *Host) deadline() uint64 {
	return h.clock.Now() + h.opts.Revolutions*h.opts.Revolution
}

func (h *Host) cancel() {
	h.ctl.Write(fdc.RegCmd0, fdc.ModeIdle)
}

// ReadSector reads one sector of the given size.
func (h *Host) ReadSector(track, side, sector, size int) ([]byte, error) {
	if err := h.position(track, side, sector, size); err != nil {
		return nil, err
	}
	h.ctl.Write(fdc.RegCmd0, fdc.ModeRead)

	data := make([]byte, 0, size)
	for end := h.deadline(); h.clock.Now() < end; {
		st := h.poll()
		if st&fdc.S0_BYTE != 0 {
			b := h.ctl.Read(fdc.RegData)
			if len(data) < size {
				data = append(data, b)
			}
		}
		if st&fdc.S0_FREE == 0 {
			continue
		}
		switch {
		case st&fdc.S0_END == 0:
			h.cancel()
			return nil, fmt.Errorf("track %d sector %d: %w", track, sector, ErrLostData)
		case st&fdc.S0_CRCER != 0:
			return data, fmt.Errorf("track %d sector %d: %w", track, sector, ErrCRC)
		case len(data) < size:
			return data, fmt.Errorf("track %d sector %d: %w", track, sector, ErrLostData)
		}
		return data, nil
	}
	h.cancel()
	return nil, fmt.Errorf("track %d side %d sector %d: %w", track, side, sector, ErrNotFound)
}

func (h *Host) writeProtected() bool {
	return h.ctl.Read(fdc.RegStat1)&fdc.S1_WPRT != 0
}

// WriteSector writes one sector.
func (h *Host) WriteSector(track, side, sector int, data []byte) error {
	if err := h.position(track, side, sector, len(data)); err != nil {
		return err
	}
	if h.writeProtected() {
		return ErrWriteProtected
	}
	feed := make([]byte, 0, len(data)+3)
	feed = append(feed, mfm.SyncByte, mfm.SyncByte, mfm.DataMark)
	feed = append(feed, data...)
	h.ctl.Write(fdc.RegCmd0, fdc.ModeWrite)

	for end := h.deadline(); h.clock.Now() < end; {
		st := h.poll()
		if st&fdc.S0_DREQ != 0 && len(feed) > 0 {
			h.ctl.Write(fdc.RegData, feed[0])
			feed = feed[1:]
		}
		if st&fdc.S0_FREE != 0 {
			if len(feed) > 0 {
				return fmt.Errorf("track %d sector %d: %w", track, sector, ErrLostData)
			}
			return nil
		}
	}
	h.cancel()
	return fmt.Errorf("track %d side %d sector %d: %w", track, side, sector, ErrNotFound)
}

// waitIndex waits for the start of the index pulse.
func (h *Host) waitIndex() bool {
	prev := true
	for end := h.deadline(); h.clock.Now() < end; {
		h.clock.Advance(h.opts.PollTicks)
		idx := h.ctl.Read(fdc.RegStat1)&fdc.S1_INDX != 0
		if idx && !prev {
			return true
		}
		prev = idx
	}
	return false
}

// FormatTrack lays down a Thomson track with the given sector contents,
// starting at the index pulse.
func (h *Host) FormatTrack(track, side int, sectors [][]byte) error {
	h.Select(h.drive, side)
	if err := h.Seek(track); err != nil {
		return err
	}
	if h.writeProtected() {
		return ErrWriteProtected
	}
	if !h.waitIndex() {
		return fmt.Errorf("track %d: no index pulse", track)
	}

	raw := mfm.ThomsonLayout(sectors, track)
	bytePeriod := uint64(16 * h.ctl.CellLength())
	total := int(h.opts.Revolution / bytePeriod)
	if len(raw) > total {
		return fmt.Errorf("track %d: %d bytes do not fit in a revolution of %d", track, len(raw), total)
	}

	h.ctl.Write(fdc.RegData, raw[0].Data)
	h.ctl.Write(fdc.RegClock, raw[0].Clock)
	h.ctl.Write(fdc.RegCmd0, fdc.ModeWrite|fdc.C0_WGC)

	// Stop short of the index so the gap ahead of sector 1 survives
	for i := 1; i < total-8; {
		if h.poll()&fdc.S0_DREQ == 0 {
			continue
		}
		rb := mfm.RawByte{Data: mfm.GapByte, Clock: 0xFF}
		if i < len(raw) {
			rb = raw[i]
		}
		h.ctl.Write(fdc.RegClock, rb.Clock)
		h.ctl.Write(fdc.RegData, rb.Data)
		i++
	}
	h.clock.Advance(bytePeriod)
	h.cancel()
	return nil
}

// ReadHeaders returns the sector headers passing under the head in
// one revolution.
func (h *Host) ReadHeaders(track, side int) ([]mfm.Header, error) {
	if err := h.position(track, side, 0, fdc.SectorSize(0)); err != nil {
		return nil, err
	}
	h.ctl.Write(fdc.RegCmd0, fdc.ModeReadHeader)
	if err := h.ctl.Err(); err != nil {
		return nil, err
	}

	var ids []byte
	for end := h.clock.Now() + h.opts.Revolution; h.clock.Now() < end; {
		if h.poll()&fdc.S0_BYTE != 0 {
			ids = append(ids, h.ctl.Read(fdc.RegData))
		}
	}
	h.cancel()

	var headers []mfm.Header
	for i := 0; i+6 <= len(ids); i += 6 {
		headers = append(headers, mfm.Header{Track: ids[i], Side: ids[i+1], Sector: ids[i+2], Size: ids[i+3]})
	}
	if len(headers) == 0 {
		return nil, fmt.Errorf("track %d side %d: %w", track, side, ErrNotFound)
	}
	return headers, nil
}
