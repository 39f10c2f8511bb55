package images

import (
	"testing"

	"github.com/sergev/thomfdc/hfe"
)

func TestGetImage(t *testing.T) {
	tests := []struct {
		name  string
		cyls  int
		heads int
	}{
		{"blank40x1.fd", 40, 1},
		{"blank80x2.fd", 80, 2},
		{"dos40x1.fd", 40, 1},
		{"dos80x1.fd", 80, 1},
		{"dos80x2.fd", 80, 2},
	}
	for _, tt := range tests {
		data, err := GetImage(tt.name)
		if err != nil {
			t.Errorf("GetImage(%q) failed: %v", tt.name, err)
			continue
		}
		cyls, heads, err := hfe.Geometry(int64(len(data)))
		if err != nil || cyls != tt.cyls || heads != tt.heads {
			t.Errorf("%s: geometry %dx%d (%v), expected %dx%d", tt.name, cyls, heads, err, tt.cyls, tt.heads)
		}
	}
	if len(Names()) != len(tests) {
		t.Errorf("Names() = %v", Names())
	}
	if _, err := GetImage("fat1.44.img"); err == nil {
		t.Errorf("GetImage() of a missing image succeeded")
	}
}

func TestDirectoryTrack(t *testing.T) {
	data, err := GetImage("dos80x1.fd")
	if err != nil {
		t.Fatalf("GetImage() failed: %v", err)
	}
	fat := data[(20*16+1)*256:]
	if fat[0] != 0 {
		t.Errorf("FAT[0] = %#x, expected 0", fat[0])
	}
	// Blocks 40 and 41 cover the directory track
	for block, want := range map[int]byte{0: 0xFF, 39: 0xFF, 40: 0xFE, 41: 0xFE, 159: 0xFF, 160: 0xFE} {
		if got := fat[1+block]; got != want {
			t.Errorf("block %d = %#x, expected %#x", block, got, want)
		}
	}
	if dir := data[(20*16+2)*256]; dir != 0xFF {
		t.Errorf("first directory byte = %#x, expected 0xff", dir)
	}
}
