package floppy

import (
	"fmt"

	"github.com/sergev/thomfdc/hfe"
	"github.com/sergev/thomfdc/mfm"
)

// Disk is a flux-level medium: one periodic track per cylinder and side.
type Disk struct {
	Cyls           int
	Heads          int
	Revolution     uint64 // Ticks per revolution
	Cell           uint64 // Nominal bitcell length, for conversions
	WriteProtected bool

	tracks [][]*Track // [cyl][head]
}

// NewDisk allocates an unformatted disk.
func NewDisk(cyls, heads int, revolution, cell uint64) *Disk {
	d := &Disk{
		Cyls:       cyls,
		Heads:      heads,
		Revolution: revolution,
		Cell:       cell,
		tracks:     make([][]*Track, cyls),
	}
	for c := range d.tracks {
		d.tracks[c] = make([]*Track, heads)
		for h := range d.tracks[c] {
			d.tracks[c][h] = &Track{}
		}
	}
	return d
}

// Track returns the track at the given position, or nil past the geometry.
func (d *Disk) Track(cyl, head int) *Track {
	if cyl < 0 || cyl >= d.Cyls || head < 0 || head >= d.Heads {
		return nil
	}
	return d.tracks[cyl][head]
}

// SetTrackBits records an MFM bitstream on the given track.
func (d *Disk) SetTrackBits(cyl, head int, bits []byte) error {
	t := d.Track(cyl, head)
	if t == nil {
		return fmt.Errorf("track %d.%d outside of %dx%d geometry", cyl, head, d.Cyls, d.Heads)
	}
	transitions, err := mfm.GenerateFluxTransitions(bits, d.Cell)
	if err != nil {
		return fmt.Errorf("track %d.%d: %w", cyl, head, err)
	}
	t.Set(transitions, d.Revolution)
	return nil
}

// TrackBits recovers halfBits MFM bitcells from the given track.
func (d *Disk) TrackBits(cyl, head, halfBits int) []byte {
	t := d.Track(cyl, head)
	if t == nil {
		return make([]byte, (halfBits+7)/8)
	}
	return mfm.NewDecoder(t.Transitions(), d.Cell).Bitstream(halfBits)
}

// FromHFE builds a disk from an HFE image.
func FromHFE(img *hfe.Disk, clockHz uint64) (*Disk, error) {
	cell := mfm.CellTicks(clockHz, img.Header.BitRate)
	if cell == 0 {
		return nil, fmt.Errorf("bit rate %d kbps is too high for a %d Hz clock", img.Header.BitRate, clockHz)
	}
	d := NewDisk(int(img.Header.NumberOfTrack), int(img.Header.NumberOfSide),
		mfm.RevolutionTicks(clockHz, img.Header.FloppyRPM), cell)
	d.WriteProtected = !img.IsWriteAllowed()
	for c, tr := range img.Tracks {
		for h, bits := range [][]byte{tr.Side0, tr.Side1} {
			if h >= d.Heads || len(bits) == 0 {
				continue
			}
			if err := d.SetTrackBits(c, h, bits); err != nil {
				return nil, err
			}
		}
	}
	return d, nil
}

// ToHFE converts the disk back to an HFE image.
func (d *Disk) ToHFE(clockHz uint64) *hfe.Disk {
	bitRate := uint16(clockHz / (d.Cell * 2 * 1000))
	rpm := uint16(clockHz * 60 / d.Revolution)
	img := hfe.NewDisk(d.Cyls, d.Heads, bitRate, rpm)
	if d.WriteProtected {
		img.Header.WriteAllowed = 0
	}
	halfBits := mfm.TrackHalfBits(bitRate, rpm)
	for c := 0; c < d.Cyls; c++ {
		img.Tracks[c].Side0 = d.TrackBits(c, 0, halfBits)
		if d.Heads > 1 {
			img.Tracks[c].Side1 = d.TrackBits(c, 1, halfBits)
		}
	}
	return img
}

// Format writes a Thomson track layout from sector images, indexed as
// sectors[cyl][head][sector-1].
func Format(d *Disk, sectors [][][][]byte, bitRate, rpm uint16) error {
	halfBits := mfm.TrackHalfBits(bitRate, rpm)
	for c := 0; c < d.Cyls && c < len(sectors); c++ {
		for h := 0; h < d.Heads && h < len(sectors[c]); h++ {
			bits := mfm.NewWriter(halfBits).EncodeTrackThomson(sectors[c][h], c)
			if err := d.SetTrackBits(c, h, bits); err != nil {
				return err
			}
		}
	}
	return nil
}
