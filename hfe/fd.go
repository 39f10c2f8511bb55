package hfe

import (
	"fmt"
	"os"

	"github.com/sergev/thomfdc/mfm"
)

// Thomson disk parameters
const (
	ThomsonSectorSize = 256
	ThomsonBitRate    = 250 // kbps
	ThomsonRPM        = 300
)

// SectorImage is a raw sector dump in Thomson order: every track of
// side 0, then every track of side 1.
type SectorImage struct {
	Cyls       int
	Heads      int
	Sectors    int
	SectorSize int
	Data       []byte
}

// NewSectorImage allocates a blank image filled with 0xE5.
func NewSectorImage(cyls, heads int) *SectorImage {
	img := &SectorImage{
		Cyls:       cyls,
		Heads:      heads,
		Sectors:    mfm.ThomsonSectors,
		SectorSize: ThomsonSectorSize,
	}
	img.Data = make([]byte, cyls*heads*img.Sectors*img.SectorSize)
	for i := range img.Data {
		img.Data[i] = 0xE5
	}
	return img
}

// Geometry returns cylinders and heads for a raw image size.
// 320 KB images are taken as single-sided 80-track 3.5" disks.
func Geometry(size int64) (cyls, heads int, err error) {
	switch size {
	case 40 * 16 * 256:
		return 40, 1, nil
	case 80 * 16 * 256:
		return 80, 1, nil
	case 80 * 2 * 16 * 256:
		return 80, 2, nil
	case 40 * 16 * 128:
		return 0, 0, fmt.Errorf("single density images of %d bytes are not supported", size)
	}
	return 0, 0, fmt.Errorf("unknown image size %d bytes", size)
}

// Sector returns the bytes of sector (1-based) at the given position.
func (img *SectorImage) Sector(cyl, head, sector int) []byte {
	off := ((cyl+head*img.Cyls)*img.Sectors + sector - 1) * img.SectorSize
	return img.Data[off : off+img.SectorSize]
}

// Track returns all sectors of a track, indexed by sector-1.
func (img *SectorImage) Track(cyl, head int) [][]byte {
	out := make([][]byte, img.Sectors)
	for s := range out {
		out[s] = img.Sector(cyl, head, s+1)
	}
	return out
}

// ReadFD reads a raw Thomson .fd image.
func ReadFD(filename string) (*SectorImage, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	cyls, heads, err := Geometry(int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to detect format: %w", err)
	}
	img := &SectorImage{
		Cyls:       cyls,
		Heads:      heads,
		Sectors:    mfm.ThomsonSectors,
		SectorSize: ThomsonSectorSize,
		Data:       data,
	}
	return img, nil
}

// WriteFD writes a raw Thomson .fd image.
func WriteFD(filename string, img *SectorImage) error {
	if err := os.WriteFile(filename, img.Data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// Encode renders every track of the image as an MFM bitstream.
func (img *SectorImage) Encode() *Disk {
	disk := NewDisk(img.Cyls, img.Heads, ThomsonBitRate, ThomsonRPM)
	maxHalfBits := mfm.TrackHalfBits(ThomsonBitRate, ThomsonRPM)
	for cyl := 0; cyl < img.Cyls; cyl++ {
		for head := 0; head < img.Heads; head++ {
			data := mfm.NewWriter(maxHalfBits).EncodeTrackThomson(img.Track(cyl, head), cyl)
			if head == 0 {
				disk.Tracks[cyl].Side0 = data
			} else {
				disk.Tracks[cyl].Side1 = data
			}
		}
	}
	return disk
}

// Decode extracts the sectors from an MFM disk in Thomson layout.
func Decode(disk *Disk) (*SectorImage, error) {
	img := NewSectorImage(int(disk.Header.NumberOfTrack), int(disk.Header.NumberOfSide))
	for cyl := 0; cyl < img.Cyls; cyl++ {
		for head := 0; head < img.Heads; head++ {
			bits := disk.Tracks[cyl].Side0
			if head == 1 {
				bits = disk.Tracks[cyl].Side1
			}
			sectors, err := mfm.ReadTrackThomson(bits, cyl, img.Sectors)
			if err != nil {
				return nil, fmt.Errorf("side %d: %w", head, err)
			}
			for s, data := range sectors {
				copy(img.Sector(cyl, head, s+1), data)
			}
		}
	}
	return img, nil
}
