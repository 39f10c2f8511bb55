package config

import (
	"strings"
	"testing"

	"github.com/sergev/thomfdc/fdc"
	"github.com/sergev/thomfdc/images"
	"github.com/sergev/thomfdc/qdd"
)

func TestDefault(t *testing.T) {
	conf := Default()
	if err := Apply(conf); err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}
	if DriveName != "thomson-3.5" {
		t.Errorf("DriveName = %q, expected thomson-3.5", DriveName)
	}
	if Current.Cyls != 80 || Current.Heads != 2 {
		t.Errorf("geometry = %dx%d, expected 80x2", Current.Cyls, Current.Heads)
	}
	if ClockHz != fdc.DefaultClockHz {
		t.Errorf("ClockHz = %d, expected %d", ClockHz, fdc.DefaultClockHz)
	}
	if Overrun != fdc.OverrunAbort || !ReadHead || Checksum != qdd.CRC16 {
		t.Errorf("overrun %v, read_head %v, checksum %v", Overrun, ReadHead, Checksum)
	}

	if len(Images) != 2 || Images[0] != "basic-dos" {
		t.Errorf("Images = %v", Images)
	}
	if file, err := GetImageFilename("basic-dos"); err != nil || file != "dos80x2.fd" {
		t.Errorf("GetImageFilename() = %q, %v", file, err)
	}
	if _, err := GetImageFilename("fat12"); err == nil {
		t.Errorf("GetImageFilename() of an unknown image succeeded")
	}

	opts := BiosOptions()
	if opts.PollTicks != 128 || opts.Revolutions != 3 {
		t.Errorf("BiosOptions() = %+v", opts)
	}
	if opts.Revolution != 3200000 {
		t.Errorf("Revolution = %d, expected 3200000", opts.Revolution)
	}
}

func TestSelect(t *testing.T) {
	if err := Apply(Default()); err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}
	if err := Select("qdd"); err != nil {
		t.Fatalf("Select() failed: %v", err)
	}
	if Current.Type != TypeQDD {
		t.Errorf("Type = %q, expected qdd", Current.Type)
	}
	if err := Select("amiga"); err == nil {
		t.Errorf("Select() of an unknown drive succeeded")
	}
}

func TestParseOptional(t *testing.T) {
	conf, err := Parse([]byte(`
default = "d"
read_head = false
[[drive]]
name = "d"
cyls = 40
heads = 1
rpm = 300
kbps = 250
`))
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if err := Apply(conf); err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}
	if ReadHead {
		t.Errorf("ReadHead = true, expected false")
	}
	if Current.Type != TypeFloppy {
		t.Errorf("Type = %q, expected floppy", Current.Type)
	}
	if ClockHz != fdc.DefaultClockHz || Overrun != fdc.OverrunAbort {
		t.Errorf("defaults not filled: %d %v", ClockHz, Overrun)
	}
}

func TestParseErrors(t *testing.T) {
	drive := "\n[[drive]]\nname = \"d\"\ncyls = 80\nheads = 2\nrpm = 300\nkbps = 250\n"
	tests := []struct {
		name string
		text string
		want string
	}{
		{"syntax", "default = ", "parse"},
		{"no default", drive, "`default`"},
		{"missing drive", "default = \"x\"" + drive, "`default`"},
		{"overrun", "default = \"d\"\noverrun = \"retry\"" + drive, "`overrun`"},
		{"checksum", "default = \"d\"\n[qdd]\nchecksum = \"md5\"" + drive, "`qdd.checksum`"},
		{"type", "default = \"d\"" + drive + "type = \"tape\"\n", "type"},
		{"heads", "default = \"d\"" + strings.Replace(drive, "heads = 2", "heads = 3", 1), "heads"},
		{"cyls", "default = \"d\"" + strings.Replace(drive, "cyls = 80", "cyls = 0", 1), "cyls"},
		{"rpm", "default = \"d\"" + strings.Replace(drive, "rpm = 300", "rpm = -1", 1), "rpm"},
		{"twice", "default = \"d\"" + drive + drive, "twice"},
		{"image", "default = \"d\"" + drive + "images = [\"dos\"]\n", "image \"dos\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.text))
			if err == nil {
				t.Fatalf("Parse() succeeded, expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Parse() error = %q, expected to mention %q", err, tt.want)
			}
		})
	}
}

func TestDefaultImagesEmbedded(t *testing.T) {
	for _, img := range Default().Image {
		if _, err := images.GetImage(img.File); err != nil {
			t.Errorf("image %q: %v", img.Name, err)
		}
	}
}
