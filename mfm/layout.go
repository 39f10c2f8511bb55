package mfm

import "github.com/sergev/thomfdc/crc"

// RawByte is one byte of a track as a controller writes it when
// formatting: the data and the clock pattern. A clock of SyncClock
// marks a sync byte; any other value lets the encoder derive the clock.
type RawByte struct {
	Data  byte
	Clock byte
}

// layout collects the raw bytes of a track.
type layout []RawByte

func (l *layout) add(data byte, n int) {
	for i := 0; i < n; i++ {
		*l = append(*l, RawByte{data, 0xFF})
	}
}

func (l *layout) field(tag byte, data []byte) {
	l.add(0, syncZeros)
	for i := 0; i < 3; i++ {
		*l = append(*l, RawByte{SyncByte, SyncClock})
	}
	*l = append(*l, RawByte{tag, 0xFF})
	for _, b := range data {
		*l = append(*l, RawByte{b, 0xFF})
	}
	sum := crc.Block(crc.Seed, []byte{SyncByte, SyncByte, SyncByte, tag})
	sum = crc.Block(sum, data)
	l.add(byte(sum>>8), 1)
	l.add(byte(sum), 1)
}

// TrackLayout returns the raw byte stream of a Thomson track, without
// the trailing fill. It matches what EncodeTrack records.
func TrackLayout(sectors [][]byte, header func(s int) Header) []RawByte {
	var l layout
	l.add(GapByte, ThomsonGap1)
	for s := range sectors {
		l.field(IndexMark, header(s).Bytes())
		l.add(GapByte, ThomsonGap2)
		l.field(DataMark, sectors[s])
		l.add(GapByte, ThomsonGap3)
	}
	return l
}

// ThomsonLayout is TrackLayout with the stock Thomson headers.
func ThomsonLayout(sectors [][]byte, track int) []RawByte {
	return TrackLayout(sectors, func(s int) Header {
		return Header{Track: byte(track), Sector: byte(s + 1), Size: SizeCode(len(sectors[s]))}
	})
}
