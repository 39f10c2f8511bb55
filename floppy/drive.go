package floppy

import (
	"github.com/sergev/thomfdc/fdc"
	"github.com/sergev/thomfdc/pll"
)

// Drive is a flux-level floppy drive with an optional disk inserted.
// It implements fdc.FluxMedium.
type Drive struct {
	Cyls       int    // Mechanical track limit
	IndexTicks uint64 // Length of the index pulse, ticks

	disk    *Disk
	cyl     int
	head    int
	inward  bool
	step    bool
	motor   bool
	changed bool
}

// NewDrive creates an empty drive that can seek up to cyls tracks.
func NewDrive(cyls int) *Drive {
	return &Drive{Cyls: cyls, changed: true}
}

// Insert puts a disk in the drive.
func (d *Drive) Insert(disk *Disk) {
	d.disk = disk
	d.changed = true
}

// Eject removes the disk and returns it.
func (d *Drive) Eject() *Disk {
	disk := d.disk
	d.disk = nil
	d.changed = true
	return disk
}

// Disk returns the inserted disk, or nil.
func (d *Drive) Disk() *Disk {
	return d.disk
}

// Cylinder returns the head position.
func (d *Drive) Cylinder() int {
	return d.cyl
}

// Head returns the selected side.
func (d *Drive) Head() int {
	return d.head
}

// MotorOn reports the spindle state.
func (d *Drive) MotorOn() bool {
	return d.motor
}

// SetSide selects the head.
func (d *Drive) SetSide(side int) {
	d.head = side
}

// SetDirection sets the seek direction for the next step.
func (d *Drive) SetDirection(inward bool) {
	d.inward = inward
}

// SetStep drives the step line. The head moves when the line is released.
func (d *Drive) SetStep(asserted bool) {
	if d.step && !asserted {
		if d.inward {
			if d.cyl < d.Cyls-1 {
				d.cyl++
			}
		} else if d.cyl > 0 {
			d.cyl--
		}
		if d.disk != nil {
			d.changed = false
		}
	}
	d.step = asserted
}

// SetMotor starts or stops the spindle.
func (d *Drive) SetMotor(on bool) {
	d.motor = on
}

// Status samples the drive lines at the given time.
func (d *Drive) Status(now uint64) fdc.DriveStatus {
	st := fdc.DriveStatus{
		Track0:      d.cyl == 0,
		MotorOn:     d.motor,
		DiskChanged: d.changed,
	}
	if d.disk == nil {
		return st
	}
	st.WriteProtected = d.disk.WriteProtected
	st.Ready = d.motor
	if d.motor {
		pulse := d.IndexTicks
		if pulse == 0 {
			pulse = d.disk.Revolution / 50
		}
		st.Index = now%d.disk.Revolution < pulse
	}
	return st
}

func (d *Drive) track() *Track {
	if d.disk == nil || !d.motor {
		return nil
	}
	return d.disk.Track(d.cyl, d.head)
}

// NextTransition returns the first transition under the head strictly
// after the given time.
func (d *Drive) NextTransition(after uint64) uint64 {
	t := d.track()
	if t == nil || len(t.transitions) == 0 {
		return pll.Never
	}
	rev := d.disk.Revolution
	pos := after % rev
	base := after - pos
	if next, ok := t.next(pos); ok {
		return base + next
	}
	return base + rev + t.transitions[0]
}

// WriteFlux replaces the flux under the head between start and end.
func (d *Drive) WriteFlux(start, end uint64, transitions []uint64) {
	t := d.track()
	if t == nil || d.disk.WriteProtected || end <= start {
		return
	}
	rev := d.disk.Revolution
	offsets := make([]uint64, 0, len(transitions))
	for _, tr := range transitions {
		if tr >= start && tr < end {
			offsets = append(offsets, tr%rev)
		}
	}
	if end-start >= rev {
		t.Set(offsets, rev)
		return
	}
	ps := start % rev
	pe := ps + (end - start)
	if pe <= rev {
		t.replace(ps, pe, offsets)
		return
	}
	// The span crosses the index
	var tail, head []uint64
	for _, o := range offsets {
		if o >= ps {
			tail = append(tail, o)
		} else {
			head = append(head, o)
		}
	}
	t.replace(ps, rev, tail)
	t.replace(0, pe-rev, head)
}
