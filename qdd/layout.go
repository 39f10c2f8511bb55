// Package qdd emulates the Thomson QD 90-128 quick disk drive: a single
// spiral track of bytes read at a fixed rate, built from a 400-sector
// image and written back when the disk is ejected.
package qdd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sergev/thomfdc/crc"
)

// Medium geometry
const (
	SectorCount  = 400
	SectorLength = 128
	ImageLength  = SectorCount * SectorLength

	BitRate = 101265 // bits per second

	TrackLen       = 8000 * BitRate / 8000
	HeadReadSwPos  = 500 * BitRate / 8000
	DataReadyPos   = HeadReadSwPos + 160*BitRate/8000
	MotorStopSwPos = HeadReadSwPos + 5500*BitRate/8000
)

// Track marks
const (
	SyncByte   = 0x16
	HeaderMark = 0xA5
	DataMark   = 0x5A

	leadSync   = 2796
	gapSync    = 10
	sectorSize = 161 // track bytes per sector, whatever the check
)

var (
	// ErrImageLength is returned for images that are not 400 sectors.
	ErrImageLength = errors.New("quick disk image must be 51200 bytes")

	// ErrUnload is returned when the track no longer parses on eject.
	ErrUnload = errors.New("quick disk track is damaged")
)

// Checksum selects the field check written on the track.
type Checksum int

const (
	// CRC16 protects each field with the controller CRC.
	CRC16 Checksum = iota

	// Sum8 uses the one-byte sum of the QDD BIOS.
	Sum8
)

func (c Checksum) String() string {
	if c == Sum8 {
		return "sum8"
	}
	return "crc16"
}

// ParseChecksum converts a configuration value.
func ParseChecksum(s string) (Checksum, error) {
	switch strings.ToLower(s) {
	case "", "crc16":
		return CRC16, nil
	case "sum8":
		return Sum8, nil
	}
	return CRC16, fmt.Errorf("unknown quick disk checksum: %q", s)
}

// size returns the length of the check.
func (c Checksum) size() int {
	if c == Sum8 {
		return 1
	}
	return 2
}

// compute returns the check of a field, mark included.
func (c Checksum) compute(field []byte) []byte {
	if c == Sum8 {
		var sum byte
		for _, b := range field {
			sum += b
		}
		return []byte{sum}
	}
	return crc.Append(nil, crc.Block(crc.Seed, field))
}

// The interleave map hardcoded in the QDD BIOS: the image sector
// stored at each track position.
var sectorMap = buildMap()

func buildMap() [SectorCount]int {
	p := [6][4]int{
		{20, 2, 14, 8}, {21, 19, 13, 7},
		{22, 18, 12, 6}, {23, 17, 11, 5},
		{24, 16, 10, 4}, {1, 15, 9, 3},
	}
	q := [4]int{0, 8, 4, 12}

	var m [SectorCount]int
	for t := 0; t < 24; t++ {
		for s := 0; s < 16; s++ {
			m[t*16+s] = p[t/4][s%4]*16 + s/4 + 4*(t%4)
		}
	}
	for s := 0; s < 16; s++ {
		m[24*16+s] = q[s%4] + s/4
	}
	return m
}

// ImageSector returns the image sector recorded at track position i (0-based).
func ImageSector(i int) int {
	return sectorMap[i]
}

// BuildTrack lays out a sector image as a track.
func BuildTrack(image []byte, sum Checksum) ([]byte, error) {
	if len(image) != ImageLength {
		return nil, fmt.Errorf("%w: got %d", ErrImageLength, len(image))
	}
	track := make([]byte, TrackLen)
	pos := DataReadyPos
	pos += fill(track[pos:], SyncByte, leadSync)

	for i := 1; i <= SectorCount; i++ {
		start := pos
		header := []byte{HeaderMark, byte(i >> 8), byte(i)}
		pos += copy(track[pos:], header)
		pos += copy(track[pos:], sum.compute(header))
		pos += fill(track[pos:], SyncByte, gapSync)

		off := sectorMap[i-1] * SectorLength
		field := append([]byte{DataMark}, image[off:off+SectorLength]...)
		pos += copy(track[pos:], field)
		pos += copy(track[pos:], sum.compute(field))
		pos += fill(track[pos:], SyncByte, start+sectorSize-pos)
	}
	fill(track[pos:], SyncByte, TrackLen-pos)
	return track, nil
}

func fill(dst []byte, b byte, n int) int {
	for i := 0; i < n; i++ {
		dst[i] = b
	}
	return n
}

// UnloadTrack parses a track and writes the validated sectors into image.
// It stops at the first damaged sector and returns the number of sectors
// committed, with an ErrUnload describing the damage.
func UnloadTrack(track, image []byte, sum Checksum) (int, error) {
	if len(image) != ImageLength {
		return 0, fmt.Errorf("%w: got %d", ErrImageLength, len(image))
	}
	check := sum.size()
	pos := skipSync(track, DataReadyPos)
	for i := 1; i <= SectorCount; i++ {
		if pos+3+check > len(track) || track[pos] != HeaderMark {
			return i - 1, fmt.Errorf("%w: no header mark for sector %d at %d", ErrUnload, i, pos)
		}
		if id := int(track[pos+1])<<8 | int(track[pos+2]); id != i {
			return i - 1, fmt.Errorf("%w: sector id %d at %d, expected %d", ErrUnload, id, pos+1, i)
		}
		if !checkOK(sum, track[pos:pos+3], track[pos+3:pos+3+check]) {
			return i - 1, fmt.Errorf("%w: bad header check for sector %d at %d", ErrUnload, i, pos+3)
		}
		pos = skipSync(track, pos+3+check)

		end := pos + 1 + SectorLength
		if end+check > len(track) || track[pos] != DataMark {
			return i - 1, fmt.Errorf("%w: no data mark for sector %d at %d", ErrUnload, i, pos)
		}
		if !checkOK(sum, track[pos:end], track[end:end+check]) {
			return i - 1, fmt.Errorf("%w: bad data check for sector %d at %d", ErrUnload, i, end)
		}
		off := sectorMap[i-1] * SectorLength
		copy(image[off:off+SectorLength], track[pos+1:end])
		pos = skipSync(track, end+check)
	}
	return SectorCount, nil
}

func checkOK(sum Checksum, field, check []byte) bool {
	want := sum.compute(field)
	for i := range want {
		if check[i] != want[i] {
			return false
		}
	}
	return true
}

func skipSync(track []byte, pos int) int {
	for pos < len(track) && track[pos] == SyncByte {
		pos++
	}
	return pos
}
