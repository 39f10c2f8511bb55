package mfm

import "github.com/sergev/thomfdc/crc"

// Thomson track layout constants
const (
	ThomsonGap1    = 31 // gap before the first sector
	ThomsonGap2    = 22 // gap between header and data
	ThomsonGap3    = 44 // gap between sectors
	ThomsonSectors = 16 // sectors per track
	syncZeros      = 12 // zero bytes before every address mark
)

// Write MFM-encoded bits to a buffer
type Writer struct {
	buffer      []byte // Output buffer
	bitPos      int    // Current bit position (0-based)
	lastDataBit int    // Last data bit for encoding of next zero
	maxHalfBits int    // Maximum number of half-bits allowed for this track
}

// Create a new MFM writer.
func NewWriter(maxHalfBits int) *Writer {
	return &Writer{
		buffer:      make([]byte, 0, (maxHalfBits+7)/8),
		maxHalfBits: maxHalfBits,
	}
}

// Write a "half" bit, which means one MFM bit
func (w *Writer) writeHalfBit(bitValue int) {
	if w.bitPos >= w.maxHalfBits {
		// The track has ended.
		return
	}

	// Ensure we have space for at least one more byte.
	if w.bitPos/8 >= len(w.buffer) {
		w.buffer = append(w.buffer, 0)
	}

	if bitValue != 0 {
		w.buffer[w.bitPos/8] |= 1 << (7 - w.bitPos%8)
	}
	w.bitPos++
}

// Write one data bit, which means two MFM bits.
func (w *Writer) writeBit(dataBit int) {
	if dataBit != 0 {
		w.writeHalfBit(0)
		w.writeHalfBit(1)
	} else {
		w.writeHalfBit(w.lastDataBit ^ 1)
		w.writeHalfBit(0)
	}
	w.lastDataBit = dataBit
}

// Write a data byte, encoding it as MFM (16 bits = 2 bytes)
func (w *Writer) writeByte(data byte) {
	for i := 7; i >= 0; i-- {
		w.writeBit(int((data >> i) & 1))
	}
}

// Write n bytes of gap
func (w *Writer) writeGap(n int) {
	for i := 0; i < n; i++ {
		w.writeByte(GapByte)
	}
}

// Write A1 with the clock missing between data bits 4 and 3,
// giving the 0x4489 cell pattern.
func (w *Writer) writeSync() {
	w.writeBit(1)
	w.writeBit(0)
	w.writeBit(1)
	w.writeBit(0)
	w.writeBit(0)
	w.writeHalfBit(0) // violation
	w.writeHalfBit(0)
	w.writeBit(0)
	w.writeBit(1)
}

// Write the sync preamble, three A1 and the mark byte.
func (w *Writer) writeMarker(tag uint8) {
	for i := 0; i < syncZeros; i++ {
		w.writeByte(0)
	}
	for i := 0; i < 3; i++ {
		w.writeSync()
	}
	w.writeByte(tag)
}

// Write bytes followed by their CRC, seeded with three sync bytes and the mark.
func (w *Writer) writeField(tag byte, data []byte) {
	w.writeMarker(tag)
	for _, b := range data {
		w.writeByte(b)
	}
	sum := crc.Block(crc.Seed, []byte{SyncByte, SyncByte, SyncByte, tag})
	sum = crc.Block(sum, data)
	w.writeByte(byte(sum >> 8))
	w.writeByte(byte(sum))
}

// Return the MFM-encoded buffer
func (w *Writer) getData() []byte {
	actualBytes := (w.bitPos + 7) / 8
	if actualBytes < len(w.buffer) {
		return w.buffer[:actualBytes]
	}
	return w.buffer
}

// SizeCode returns the header size code for a sector length.
func SizeCode(sectorSize int) byte {
	code := byte(0)
	for n := 128; n < sectorSize && code < 3; n <<= 1 {
		code++
	}
	return code
}

// Header is the contents of a sector ID field.
type Header struct {
	Track  byte
	Side   byte
	Sector byte
	Size   byte
}

// Bytes returns the header as written after the ID mark.
func (h Header) Bytes() []byte {
	return []byte{h.Track, h.Side, h.Sector, h.Size}
}

// Encode a track in Thomson format.
// sectors: array of sector data, indexed by sector number (0-based)
// track: cylinder number written into every header
//
// Track layout for Thomson floppies
// ┌────┬──────┬──────┬────┬──────┬────┬────┬···┬────┐
// │gap1│Sector│Sector│gap2│Data  │Data│gap3│   │fill│
// │(31)│Marker│Header│(22)│Marker│+CRC│(44)│   │    │
// └────┴──────┴──────┴────┴──────┴────┴────┴···┴────┘
//
//	└──────────────repeat──────────────┘
//
// The side byte of every header is zero, whatever the side.
func (w *Writer) EncodeTrackThomson(sectors [][]byte, track int) []byte {
	return w.EncodeTrack(sectors, func(s int) Header {
		return Header{
			Track:  byte(track),
			Sector: byte(s + 1),
			Size:   SizeCode(len(sectors[s])),
		}
	})
}

// EncodeTrack writes the Thomson layout with caller-supplied headers.
func (w *Writer) EncodeTrack(sectors [][]byte, header func(s int) Header) []byte {
	w.writeGap(ThomsonGap1)

	for s := range sectors {
		w.writeField(IndexMark, header(s).Bytes())
		w.writeGap(ThomsonGap2)
		w.writeField(DataMark, sectors[s])
		w.writeGap(ThomsonGap3)
	}

	// Fill remaining track
	for w.bitPos < w.maxHalfBits {
		w.writeByte(GapByte)
	}
	return w.getData()
}
