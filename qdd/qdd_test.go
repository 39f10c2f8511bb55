package qdd

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"

	"github.com/sergev/thomfdc/fdc"
)

func randomImage(seed int64) []byte {
	image := make([]byte, ImageLength)
	rand.New(rand.NewSource(seed)).Read(image)
	return image
}

// sectorStart returns the track offset of the header of sector i (1-based).
func sectorStart(i int) int {
	return DataReadyPos + leadSync + (i-1)*sectorSize
}

func TestConstants(t *testing.T) {
	tests := []struct {
		name string
		got  int
		want int
	}{
		{"TrackLen", TrackLen, 101265},
		{"HeadReadSwPos", HeadReadSwPos, 6329},
		{"DataReadyPos", DataReadyPos, 8354},
		{"MotorStopSwPos", MotorStopSwPos, 75948},
		{"end of sectors", sectorStart(SectorCount + 1), 75550},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %d, expected %d", tt.name, tt.got, tt.want)
		}
	}
}

func TestSectorMap(t *testing.T) {
	seen := make([]bool, SectorCount)
	for i := 0; i < SectorCount; i++ {
		s := ImageSector(i)
		if s < 0 || s >= SectorCount || seen[s] {
			t.Fatalf("ImageSector(%d) = %d is out of range or repeated", i, s)
		}
		seen[s] = true
	}
	if ImageSector(0) != 320 || ImageSector(384) != 0 || ImageSector(399) != 15 {
		t.Errorf("map = %d %d %d, expected 320 0 15", ImageSector(0), ImageSector(384), ImageSector(399))
	}
}

func TestBuildTrack(t *testing.T) {
	image := randomImage(1)
	for _, sum := range []Checksum{CRC16, Sum8} {
		t.Run(sum.String(), func(t *testing.T) {
			track, err := BuildTrack(image, sum)
			if err != nil {
				t.Fatalf("BuildTrack() failed: %v", err)
			}
			if len(track) != TrackLen {
				t.Fatalf("len(track) = %d, expected %d", len(track), TrackLen)
			}
			if track[DataReadyPos-1] != 0 || track[DataReadyPos] != SyncByte {
				t.Errorf("lead-in does not start at the data ready position")
			}
			for _, i := range []int{1, 2, 200, 400} {
				pos := sectorStart(i)
				if track[pos] != HeaderMark || int(track[pos+1])<<8|int(track[pos+2]) != i {
					t.Errorf("sector %d: header % x", i, track[pos:pos+3])
				}
				data := pos + 3 + sum.size() + gapSync
				if track[data] != DataMark {
					t.Errorf("sector %d: data mark = %02x", i, track[data])
				}
				off := ImageSector(i-1) * SectorLength
				if !bytes.Equal(track[data+1:data+1+SectorLength], image[off:off+SectorLength]) {
					t.Errorf("sector %d: payload mismatch", i)
				}
			}
			if sum == Sum8 {
				pos := sectorStart(1)
				if want := byte(HeaderMark + 0 + 1); track[pos+3] != want {
					t.Errorf("header sum = %02x, expected %02x", track[pos+3], want)
				}
			}
			for pos := sectorStart(SectorCount + 1); pos < TrackLen; pos++ {
				if track[pos] != SyncByte {
					t.Fatalf("trailer byte at %d = %02x", pos, track[pos])
				}
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	image := randomImage(2)
	for _, sum := range []Checksum{CRC16, Sum8} {
		track, err := BuildTrack(image, sum)
		if err != nil {
			t.Fatalf("BuildTrack() failed: %v", err)
		}
		back := make([]byte, ImageLength)
		n, err := UnloadTrack(track, back, sum)
		if err != nil || n != SectorCount {
			t.Errorf("%v: UnloadTrack() = %d, %v", sum, n, err)
		}
		if !bytes.Equal(back, image) {
			t.Errorf("%v: image changed in the round trip", sum)
		}
	}
}

func TestUnloadDamaged(t *testing.T) {
	image := randomImage(3)
	track, _ := BuildTrack(image, CRC16)

	// Damage the payload of track sector 10
	track[sectorStart(10)+3+2+gapSync+5] ^= 0x40

	back := make([]byte, ImageLength)
	n, err := UnloadTrack(track, back, CRC16)
	if !errors.Is(err, ErrUnload) {
		t.Fatalf("UnloadTrack() error = %v, expected ErrUnload", err)
	}
	if n != 9 {
		t.Errorf("UnloadTrack() = %d sectors, expected 9", n)
	}
	for i := 0; i < SectorCount; i++ {
		off := ImageSector(i) * SectorLength
		committed := bytes.Equal(back[off:off+SectorLength], image[off:off+SectorLength])
		if committed != (i < 9) {
			t.Errorf("track sector %d committed = %t", i+1, committed)
		}
	}
}

func TestImageLength(t *testing.T) {
	if _, err := BuildTrack(make([]byte, 1000), CRC16); !errors.Is(err, ErrImageLength) {
		t.Errorf("BuildTrack() error = %v, expected ErrImageLength", err)
	}
	d := NewDrive(&fdc.ManualClock{}, Options{})
	if err := d.Insert(make([]byte, ImageLength+1), false); !errors.Is(err, ErrImageLength) {
		t.Errorf("Insert() error = %v, expected ErrImageLength", err)
	}
}

func TestParseChecksum(t *testing.T) {
	for _, tt := range []struct {
		in   string
		want Checksum
		ok   bool
	}{
		{"", CRC16, true},
		{"crc16", CRC16, true},
		{"SUM8", Sum8, true},
		{"xor", CRC16, false},
	} {
		got, err := ParseChecksum(tt.in)
		if got != tt.want || (err == nil) != tt.ok {
			t.Errorf("ParseChecksum(%q) = %v, %v", tt.in, got, err)
		}
	}
}

// byteAt returns the time at which the cursor has passed offset n.
func byteAt(d *Drive, n int) uint64 {
	return d.byteTime(uint64(n))
}

func TestDriveSignals(t *testing.T) {
	clock := &fdc.ManualClock{}
	d := NewDrive(clock, Options{})
	if st := d.Status(0); st.Ready || st.Index || !st.DiskChanged {
		t.Errorf("empty drive status = %+v", st)
	}
	if err := d.Insert(randomImage(4), true); err != nil {
		t.Fatalf("Insert() failed: %v", err)
	}
	d.SetMotor(true)
	if !d.MotorCommand() {
		t.Errorf("motor command not latched")
	}

	clock.Set(byteAt(d, HeadReadSwPos-10))
	if st := d.Status(clock.Now()); !st.Index || st.Ready || !st.WriteProtected {
		t.Errorf("status before the head switch = %+v", st)
	}
	clock.Set(byteAt(d, HeadReadSwPos+10))
	if st := d.Status(clock.Now()); st.Index || !st.Ready {
		t.Errorf("status past the head switch = %+v", st)
	}
	if b := d.ByteAt(byteAt(d, DataReadyPos-10)); b != 0 {
		t.Errorf("read before the data area = %02x, expected 0", b)
	}

	// Dropping the motor stops the spindle at the end of the track
	d.SetMotor(false)
	clock.Set(byteAt(d, MotorStopSwPos+10))
	if d.MotorCommand() {
		t.Errorf("motor command still set past the stop switch")
	}
	clock.Set(byteAt(d, 3*TrackLen))
	if off := d.Offset(); off != 0 {
		t.Errorf("Offset() = %d after stop, expected 0", off)
	}
	if d.Ready() {
		t.Errorf("drive ready after the track end")
	}
}

// fakeSerial records received bytes and transmits from a callback.
type fakeSerial struct {
	motor bool
	cts   bool
	rx    []byte
	tx    func() (byte, bool)
}

func (f *fakeSerial) MotorRequest() bool     { return f.motor }
func (f *fakeSerial) SetClearToSend(on bool) { f.cts = on }
func (f *fakeSerial) RxByte(b byte)          { f.rx = append(f.rx, b) }

func (f *fakeSerial) TxByte() (byte, bool) {
	if f.tx == nil {
		return 0, true
	}
	return f.tx()
}

func TestBridgeStatus(t *testing.T) {
	clock := &fdc.ManualClock{}
	d := NewDrive(clock, Options{})
	serial := &fakeSerial{}
	b := NewBridge(clock, d, serial)

	if st := b.Status(); st != StatusDiskAbsent|StatusNotReady {
		t.Errorf("Status() = %02x with no disk", st)
	}
	d.Insert(randomImage(5), false)
	if st := b.Status(); st != StatusNotReady {
		t.Errorf("Status() = %02x with the motor off", st)
	}
	serial.motor = true
	clock.Advance(1)
	b.Sync()
	clock.Set(byteAt(d, HeadReadSwPos+10))
	if st := b.Status(); st != 0 {
		t.Errorf("Status() = %02x while spinning", st)
	}
	if serial.cts {
		t.Errorf("clear to send asserted on a writable disk")
	}
}

func TestBridgeRead(t *testing.T) {
	clock := &fdc.ManualClock{}
	d := NewDrive(clock, Options{})
	image := randomImage(6)
	d.Insert(image, false)
	serial := &fakeSerial{motor: true}
	b := NewBridge(clock, d, serial)

	clock.Set(byteAt(d, TrackLen-1))
	b.Sync()
	for _, i := range []int{1, 150, 400} {
		pos := sectorStart(i)
		if !bytes.Contains(serial.rx, d.Track()[pos:pos+sectorSize]) {
			t.Errorf("sector %d not received", i)
		}
	}
}

func TestBridgeWrite(t *testing.T) {
	clock := &fdc.ManualClock{}
	d := NewDrive(clock, Options{})
	image := randomImage(7)
	d.Insert(image, false)

	// Rewrite track sector 42 with new contents
	fresh := append([]byte(nil), image...)
	off := ImageSector(41) * SectorLength
	copy(fresh[off:off+SectorLength], bytes.Repeat([]byte{0xC3}, SectorLength))
	target, _ := BuildTrack(fresh, CRC16)
	first, last := sectorStart(42), sectorStart(43)

	serial := &fakeSerial{motor: true}
	serial.tx = func() (byte, bool) {
		if d.offset < first || d.offset >= last {
			return 0, true
		}
		return target[d.offset], false
	}
	b := NewBridge(clock, d, serial)
	b.SetWriteGate(0)

	clock.Set(byteAt(d, TrackLen-1))
	b.Sync()
	b.SetWriteGate(WriteGateOff)

	got, err := d.Eject()
	if err != nil {
		t.Fatalf("Eject() failed: %v", err)
	}
	if !bytes.Equal(got, fresh) {
		t.Errorf("ejected image does not hold the written sector")
	}
}

func TestByteGrid(t *testing.T) {
	clock := &fdc.ManualClock{}
	d := NewDrive(clock, Options{})
	if err := d.Insert(randomImage(9), false); err != nil {
		t.Fatalf("Insert() failed: %v", err)
	}
	clock.Set(777)
	d.SetMotor(true)

	// Sample on whole byte periods, as the controller byte unit does,
	// for more than a revolution: every sample must see the next byte.
	period := d.BytePeriod()
	at := (clock.Now() + period) / period * period
	d.ByteAt(at)
	prev := d.Offset()
	for i := 0; i < TrackLen+TrackLen/4; i++ {
		at += period
		d.ByteAt(at)
		off := d.Offset()
		if off != (prev+1)%TrackLen {
			t.Fatalf("sample %d: offset %d -> %d, expected one byte forward", i, prev, off)
		}
		prev = off
	}
}

func TestControllerAttach(t *testing.T) {
	clock := &fdc.ManualClock{}
	d := NewDrive(clock, Options{})
	d.Insert(randomImage(8), false)

	ctl := fdc.New(clock, fdc.DefaultOptions())
	ctl.AttachDrive(0, d)
	ctl.Write(fdc.RegCmd2, fdc.Cmd2(0, 0, true))
	if st := ctl.Read(fdc.RegStat1); st&fdc.S1_INDX == 0 || st&fdc.S1_RDY != 0 {
		t.Errorf("stat1 = %02x at the start of the track", st)
	}
	clock.Set(byteAt(d, HeadReadSwPos+10))
	if st := ctl.Read(fdc.RegStat1); st&fdc.S1_RDY == 0 || st&fdc.S1_MTON == 0 {
		t.Errorf("stat1 = %02x past the head switch", st)
	}
}
