package bios

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"

	"github.com/sergev/thomfdc/fdc"
	"github.com/sergev/thomfdc/floppy"
	"github.com/sergev/thomfdc/hfe"
	"github.com/sergev/thomfdc/mfm"
)

type machine struct {
	clock *fdc.ManualClock
	ctl   *fdc.Controller
	drive *floppy.Drive
	disk  *floppy.Disk
	host  *Host
}

func newMachine(t *testing.T, img *hfe.SectorImage, opts fdc.Options) *machine {
	t.Helper()
	clockHz := uint64(fdc.DefaultClockHz)
	var disk *floppy.Disk
	if img != nil {
		var err error
		disk, err = floppy.FromHFE(img.Encode(), clockHz)
		if err != nil {
			t.Fatalf("FromHFE() failed: %v", err)
		}
	} else {
		disk = floppy.NewDisk(2, 2, mfm.RevolutionTicks(clockHz, 300), mfm.CellTicks(clockHz, 250))
	}
	m := &machine{clock: &fdc.ManualClock{}, disk: disk, drive: floppy.NewDrive(80)}
	m.drive.Insert(disk)
	m.ctl = fdc.New(m.clock, opts)
	m.ctl.AttachDrive(0, m.drive)
	m.host = New(m.ctl, m.clock, DefaultOptions())
	m.host.Select(0, 0)
	return m
}

func randomImage(seed int64, cyls, heads int) *hfe.SectorImage {
	img := hfe.NewSectorImage(cyls, heads)
	rand.New(rand.NewSource(seed)).Read(img.Data)
	return img
}

func TestReadSector(t *testing.T) {
	img := randomImage(1, 3, 2)
	m := newMachine(t, img, fdc.DefaultOptions())

	tests := []struct {
		cyl, head, sector int
	}{
		{0, 0, 1},
		{2, 0, 16},
		{1, 1, 5},
		{0, 1, 8},
	}
	for _, tt := range tests {
		data, err := m.host.ReadSector(tt.cyl, tt.head, tt.sector, 256)
		if err != nil {
			t.Errorf("ReadSector(%d, %d, %d) failed: %v", tt.cyl, tt.head, tt.sector, err)
			continue
		}
		if !bytes.Equal(data, img.Sector(tt.cyl, tt.head, tt.sector)) {
			t.Errorf("ReadSector(%d, %d, %d) data mismatch", tt.cyl, tt.head, tt.sector)
		}
		if m.drive.Cylinder() != tt.cyl || m.drive.Head() != tt.head {
			t.Errorf("head at %d.%d, expected %d.%d", m.drive.Cylinder(), m.drive.Head(), tt.cyl, tt.head)
		}
	}
}

func TestReadErrors(t *testing.T) {
	img := randomImage(2, 2, 1)
	m := newMachine(t, img, fdc.DefaultOptions())

	if _, err := m.host.ReadSector(0, 0, 17, 256); !errors.Is(err, ErrNotFound) {
		t.Errorf("ReadSector() of a missing sector = %v, expected ErrNotFound", err)
	}
	if m.ctl.State() != fdc.StateIdle {
		t.Errorf("State() = %v after timeout, expected IDLE", m.ctl.State())
	}

	// Wrong size code never matches the headers
	if _, err := m.host.ReadSector(1, 0, 1, 128); !errors.Is(err, ErrNotFound) {
		t.Errorf("ReadSector() with a wrong size = %v, expected ErrNotFound", err)
	}
}

func TestReadCRCError(t *testing.T) {
	img := randomImage(3, 1, 1)
	m := newMachine(t, img, fdc.DefaultOptions())

	// Corrupt a data byte of sector 2: drop one flux transition
	// well inside its data field
	bits := m.disk.TrackBits(0, 0, mfm.TrackHalfBits(250, 300))
	pos := (31 + 362 + 12 + 4 + 4 + 2 + 22 + 12 + 4 + 100) * 16
	for bits[pos/8]>>(7-pos%8)&1 == 0 {
		pos++
	}
	bits[pos/8] &^= 1 << (7 - pos%8)
	if err := m.disk.SetTrackBits(0, 0, bits); err != nil {
		t.Fatalf("SetTrackBits() failed: %v", err)
	}

	if _, err := m.host.ReadSector(0, 0, 2, 256); !errors.Is(err, ErrCRC) {
		t.Errorf("ReadSector() = %v, expected ErrCRC", err)
	}
	if _, err := m.host.ReadSector(0, 0, 3, 256); err != nil {
		t.Errorf("ReadSector() of the next sector failed: %v", err)
	}
}

func TestWriteSector(t *testing.T) {
	img := randomImage(4, 2, 1)
	m := newMachine(t, img, fdc.DefaultOptions())

	fresh := bytes.Repeat([]byte{0x5A, 0xA5}, 128)
	if err := m.host.WriteSector(1, 0, 9, fresh); err != nil {
		t.Fatalf("WriteSector() failed: %v", err)
	}
	copy(img.Sector(1, 0, 9), fresh)

	got, err := m.host.ReadImage(2, 1, nil)
	if err != nil {
		t.Fatalf("ReadImage() failed: %v", err)
	}
	if !bytes.Equal(got.Data, img.Data) {
		t.Errorf("image differs after writing one sector")
	}

	m.disk.WriteProtected = true
	if err := m.host.WriteSector(1, 0, 9, fresh); !errors.Is(err, ErrWriteProtected) {
		t.Errorf("WriteSector() on a protected disk = %v", err)
	}
}

func TestFormatImage(t *testing.T) {
	m := newMachine(t, nil, fdc.DefaultOptions())
	img := randomImage(5, 2, 2)

	var tracks int
	if err := m.host.FormatImage(img, func(cyl, head int) { tracks++ }); err != nil {
		t.Fatalf("FormatImage() failed: %v", err)
	}
	if tracks != 4 {
		t.Errorf("progress called %d times, expected 4", tracks)
	}

	got, err := m.host.ReadImage(2, 2, nil)
	if err != nil {
		t.Fatalf("ReadImage() after format failed: %v", err)
	}
	if !bytes.Equal(got.Data, img.Data) {
		t.Errorf("formatted image differs")
	}

	// The flux also decodes offline
	back, err := hfe.Decode(m.disk.ToHFE(fdc.DefaultClockHz))
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}
	if !bytes.Equal(back.Data, img.Data) {
		t.Errorf("offline decode of the formatted disk differs")
	}
}

func TestReadHeaders(t *testing.T) {
	m := newMachine(t, randomImage(6, 3, 1), fdc.DefaultOptions())

	headers, err := m.host.ReadHeaders(2, 0)
	if err != nil {
		t.Fatalf("ReadHeaders() failed: %v", err)
	}
	if len(headers) < 15 {
		t.Errorf("got %d headers in a revolution, expected at least 15", len(headers))
	}
	for _, hdr := range headers {
		if hdr.Track != 2 || hdr.Side != 0 || hdr.Size != 1 || hdr.Sector < 1 || hdr.Sector > 16 {
			t.Errorf("header %+v", hdr)
		}
	}

	opts := fdc.DefaultOptions()
	opts.ReadHead = false
	m = newMachine(t, randomImage(6, 1, 1), opts)
	if _, err := m.host.ReadHeaders(0, 0); !errors.Is(err, fdc.ErrUnsupportedCommand) {
		t.Errorf("ReadHeaders() = %v, expected ErrUnsupportedCommand", err)
	}
}

func TestOverrunPolicy(t *testing.T) {
	img := randomImage(7, 1, 1)
	slow := DefaultOptions()
	slow.PollTicks = 2000 // longer than a byte

	for _, tt := range []struct {
		policy fdc.OverrunPolicy
		want   error
	}{
		{fdc.OverrunAbort, ErrLostData},
		{fdc.OverrunIgnore, ErrLostData},
	} {
		opts := fdc.DefaultOptions()
		opts.Overrun = tt.policy
		m := newMachine(t, img, opts)
		m.host = New(m.ctl, m.clock, slow)
		m.host.Select(0, 0)
		if _, err := m.host.ReadSector(0, 0, 4, 256); !errors.Is(err, tt.want) {
			t.Errorf("%v: ReadSector() = %v, expected %v", tt.policy, err, tt.want)
		}
	}
}
