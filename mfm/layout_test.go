package mfm

import (
	"math/rand"
	"testing"
)

// Encode a raw byte stream with the controller codec and compare
// with the track writer.
func TestTrackLayout(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	sectors := makeSectors(rng, ThomsonSectors, 256)
	raw := ThomsonLayout(sectors, 7)

	expect := 31 + 16*(12+3+1+4+2+22+12+3+1+256+2+44)
	if len(raw) != expect {
		t.Fatalf("len(TrackLayout) = %d, expected %d", len(raw), expect)
	}

	var c Codec
	cells := make([]uint8, 0, len(raw)*16)
	for _, rb := range raw {
		c.Load(rb.Data, rb.Clock)
		c.Verbatim = rb.Data == SyncByte && rb.Clock == SyncClock
		for i := 0; i < 16; i++ {
			cells = append(cells, c.NextBit())
		}
	}
	ref := NewWriter(len(cells)).EncodeTrackThomson(sectors, 7)
	for i, bit := range cells {
		want := ref[i/8] >> (7 - i%8) & 1
		if bit != want {
			t.Fatalf("cell %d = %d, expected %d", i, bit, want)
		}
	}
}
