package mfm

import (
	"errors"
	"fmt"

	"github.com/sergev/thomfdc/crc"
)

// ErrEndOfTrack is returned when the bitstream runs out.
var ErrEndOfTrack = errors.New("end of bitstream")

// Read bits from an MFM bitstream (MSB-first byte order)
// In MFM encoding: each data bit is encoded as 2 bits.
type Reader struct {
	data   []byte // MFM bitstream data (two bits per each data bit)
	bitPos int    // Current bit position in raw bitstream (0-based)
}

// Create a new MFM bitstream reader
func NewReader(data []byte) *Reader {
	return &Reader{
		data:   data,
		bitPos: 0,
	}
}

// Read "half" bit, which means a raw next bit from MFM stream.
func (r *Reader) readHalfBit() (int, error) {
	if r.bitPos >= len(r.data)*8 {
		return -1, ErrEndOfTrack
	}
	bit := (r.data[r.bitPos/8] >> (7 - r.bitPos&7)) & 1
	r.bitPos++
	return int(bit), nil
}

// Read a single DATA bit from the MFM bitstream.
func (r *Reader) readBit() (int, error) {
	// Ignore the clock half-bit
	if _, err := r.readHalfBit(); err != nil {
		return -1, err
	}
	return r.readHalfBit()
}

// Read 8 bits and return them as a byte
func (r *Reader) readByte() (byte, error) {
	var result byte
	for i := 0; i < 8; i++ {
		bit, err := r.readBit()
		if err != nil {
			return 0, err
		}
		result = (result << 1) | byte(bit)
	}
	return result, nil
}

// Read n bytes
func (r *Reader) readBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	for i := range buf {
		b, err := r.readByte()
		if err != nil {
			return nil, err
		}
		buf[i] = b
	}
	return buf, nil
}

// Scan for the 00-a1-a1-a1 marker.
// Return the tag byte after the marker, or error
func (r *Reader) scanThomson() (byte, error) {
	history := uint32(0x13713713)

	for {
		bit, err := r.readBit()
		if err != nil {
			return 0, err
		}
		history = history<<1 | uint32(bit)

		// All ones - synchronize to half-bit
		if history == 0xffffffff {
			if _, err := r.readHalfBit(); err != nil {
				return 0, err
			}
			history = 0
			continue
		}

		if history == 0x00a1a1a1 {
			return r.readByte()
		}
	}
}

// A sector as found on the track, with CRC status.
type Sector struct {
	Header
	Data     []byte
	HeaderOK bool
	DataOK   bool
}

// ReadSectorThomson returns the next sector with a valid header on the
// given track. The data CRC is reported, not enforced.
func (r *Reader) ReadSectorThomson(track int) (*Sector, error) {
	for {
		tag, err := r.scanThomson()
		if err != nil {
			return nil, err
		}
		if tag != IndexMark {
			continue
		}

		raw, err := r.readBytes(6)
		if err != nil {
			return nil, err
		}
		sum := crc.Block(crc.Seed, []byte{SyncByte, SyncByte, SyncByte, IndexMark})
		if crc.Block(sum, raw) != 0 {
			// Header CRC mismatch, continue searching
			continue
		}
		sec := &Sector{
			Header:   Header{Track: raw[0], Side: raw[1], Sector: raw[2], Size: raw[3] & 3},
			HeaderOK: true,
		}
		if int(sec.Track) != track {
			continue
		}

		tag, err = r.scanThomson()
		if err != nil {
			return nil, err
		}
		if tag != DataMark {
			continue
		}
		body, err := r.readBytes((128 << sec.Size) + 2)
		if err != nil {
			return nil, err
		}
		sum = crc.Block(crc.Seed, []byte{SyncByte, SyncByte, SyncByte, DataMark})
		sec.DataOK = crc.Block(sum, body) == 0
		sec.Data = body[:len(body)-2]
		return sec, nil
	}
}

// ReadTrackThomson decodes up to count sectors, numbered from 1.
// It returns the sectors indexed by number-1 and fails if any is
// missing or damaged.
func ReadTrackThomson(data []byte, track, count int) ([][]byte, error) {
	r := NewReader(data)
	out := make([][]byte, count)
	found := 0
	for found < count {
		sec, err := r.ReadSectorThomson(track)
		if err != nil {
			break
		}
		idx := int(sec.Sector) - 1
		if idx < 0 || idx >= count || out[idx] != nil {
			continue
		}
		if !sec.DataOK {
			return nil, fmt.Errorf("track %d sector %d: bad data CRC", track, sec.Sector)
		}
		out[idx] = sec.Data
		found++
	}
	if found < count {
		for i, s := range out {
			if s == nil {
				return nil, fmt.Errorf("track %d: sector %d not found", track, i+1)
			}
		}
	}
	return out, nil
}
