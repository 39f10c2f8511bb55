package hfe

import (
	"bytes"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
)

// createTestImage creates a sector image with random contents
func createTestImage(cyls, heads int) *SectorImage {
	img := NewSectorImage(cyls, heads)
	rand.New(rand.NewSource(42)).Read(img.Data)
	return img
}

func TestDetectImageFormat(t *testing.T) {
	tests := []struct {
		filename string
		expected ImageFormat
	}{
		{"disk.hfe", ImageFormatHFE},
		{"DISK.HFE", ImageFormatHFE},
		{"games.fd", ImageFormatFD},
		{"basic.qd", ImageFormatQD},
		{"noext", ImageFormatUnknown},
		{"disk.img", ImageFormatUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			if got := DetectImageFormat(tt.filename); got != tt.expected {
				t.Errorf("DetectImageFormat(%q) = %v, expected %v", tt.filename, got, tt.expected)
			}
		})
	}
}

func TestGeometry(t *testing.T) {
	tests := []struct {
		size  int64
		cyls  int
		heads int
		fails bool
	}{
		{163840, 40, 1, false},
		{327680, 80, 1, false},
		{655360, 80, 2, false},
		{81920, 0, 0, true},
		{12345, 0, 0, true},
	}
	for _, tt := range tests {
		cyls, heads, err := Geometry(tt.size)
		if (err != nil) != tt.fails {
			t.Errorf("Geometry(%d) error = %v, expected failure %v", tt.size, err, tt.fails)
			continue
		}
		if cyls != tt.cyls || heads != tt.heads {
			t.Errorf("Geometry(%d) = %d, %d, expected %d, %d", tt.size, cyls, heads, tt.cyls, tt.heads)
		}
	}
}

func TestSectorLayout(t *testing.T) {
	img := NewSectorImage(80, 2)
	// Side 1 starts after all tracks of side 0
	img.Sector(0, 1, 1)[0] = 0x42
	if img.Data[80*16*256] != 0x42 {
		t.Errorf("sector 0.1.1 is not at the start of the second side")
	}
	img.Sector(2, 0, 3)[0] = 0x24
	if img.Data[(2*16+2)*256] != 0x24 {
		t.Errorf("sector 2.0.3 at wrong offset")
	}
}

func TestHFERoundTrip(t *testing.T) {
	img := createTestImage(4, 2)
	disk := img.Encode()

	var buf bytes.Buffer
	if err := EncodeHFE(&buf, disk); err != nil {
		t.Fatalf("EncodeHFE() failed: %v", err)
	}
	if buf.Len()%BlockSize != 0 {
		t.Errorf("HFE size %d is not a multiple of %d", buf.Len(), BlockSize)
	}

	got, err := DecodeHFE(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("DecodeHFE() failed: %v", err)
	}
	if got.Header.NumberOfTrack != 4 || got.Header.NumberOfSide != 2 {
		t.Errorf("geometry = %dx%d, expected 4x2", got.Header.NumberOfTrack, got.Header.NumberOfSide)
	}
	if got.Header.BitRate != ThomsonBitRate || got.Header.FloppyRPM != ThomsonRPM {
		t.Errorf("bit rate %d, rpm %d", got.Header.BitRate, got.Header.FloppyRPM)
	}
	for i := range disk.Tracks {
		if !bytes.Equal(got.Tracks[i].Side0, disk.Tracks[i].Side0) {
			t.Errorf("track %d side 0 differs", i)
		}
		if !bytes.Equal(got.Tracks[i].Side1, disk.Tracks[i].Side1) {
			t.Errorf("track %d side 1 differs", i)
		}
	}

	back, err := Decode(got)
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}
	if !bytes.Equal(back.Data, img.Data) {
		t.Errorf("sector contents differ after HFE round trip")
	}
}

func TestDecodeHFEErrors(t *testing.T) {
	tests := []struct {
		name   string
		header []byte
	}{
		{"v3", []byte(HFEv3Signature)},
		{"bad signature", []byte("NOTANHFE")},
		{"short", []byte("HXC")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := make([]byte, BlockSize)
			copy(buf, tt.header)
			if tt.name == "short" {
				buf = buf[:3]
			}
			if _, err := DecodeHFE(bytes.NewReader(buf)); err == nil {
				t.Errorf("DecodeHFE() should fail")
			}
		})
	}
}

func TestConvertFiles(t *testing.T) {
	dir := t.TempDir()
	img := createTestImage(80, 1)
	src := filepath.Join(dir, "disk.fd")
	if err := WriteFD(src, img); err != nil {
		t.Fatalf("WriteFD() failed: %v", err)
	}

	disk, err := Read(src)
	if err != nil {
		t.Fatalf("Read(%s) failed: %v", src, err)
	}
	dst := filepath.Join(dir, "disk.hfe")
	if err := Write(dst, disk); err != nil {
		t.Fatalf("Write(%s) failed: %v", dst, err)
	}
	disk2, err := Read(dst)
	if err != nil {
		t.Fatalf("Read(%s) failed: %v", dst, err)
	}
	back := filepath.Join(dir, "back.fd")
	if err := Write(back, disk2); err != nil {
		t.Fatalf("Write(%s) failed: %v", back, err)
	}
	data, err := os.ReadFile(back)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, img.Data) {
		t.Errorf("fd -> hfe -> fd changed the contents")
	}

	if _, err := Read(filepath.Join(dir, "disk.xyz")); err == nil {
		t.Errorf("Read() of unknown extension should fail")
	}
}
