package cmd

import (
	"fmt"

	"github.com/sergev/thomfdc/bios"
	"github.com/sergev/thomfdc/config"
	"github.com/sergev/thomfdc/fdc"
	"github.com/sergev/thomfdc/floppy"
	"github.com/sergev/thomfdc/hfe"
	"github.com/sergev/thomfdc/mfm"
	"github.com/spf13/cobra"
)

// machine is a controller with one floppy drive, driven by the firmware
// on an emulated clock.
type machine struct {
	clock *fdc.ManualClock
	ctl   *fdc.Controller
	drive *floppy.Drive
	host  *bios.Host
}

func newMachine(disk *floppy.Disk, opts bios.Options) (*machine, error) {
	fdcMask, _, err := parseTrace(traceList)
	if err != nil {
		return nil, err
	}
	ctlOpts := config.ControllerOptions()
	ctlOpts.Trace = fdcMask
	ctlOpts.Logger = traceLogger(fdcMask)

	cyls := config.Current.Cyls
	if disk.Cyls > cyls {
		cyls = disk.Cyls
	}
	m := &machine{
		clock: &fdc.ManualClock{},
		drive: floppy.NewDrive(cyls),
	}
	m.drive.Insert(disk)
	m.ctl = fdc.New(m.clock, ctlOpts)
	m.ctl.AttachDrive(0, m.drive)
	m.host = bios.New(m.ctl, m.clock, opts)
	m.host.Select(0, 0)
	return m, nil
}

// mustFloppy stops the command unless the selected profile is a floppy drive.
func mustFloppy() {
	if config.Current.Type != config.TypeFloppy {
		cobra.CheckErr(fmt.Errorf("drive %s is not a floppy drive", config.DriveName))
	}
}

// loadDisk reads an HFE or FD file as a flux disk.
func loadDisk(filename string) (*floppy.Disk, error) {
	img, err := hfe.Read(filename)
	if err != nil {
		return nil, err
	}
	return floppy.FromHFE(img, config.ClockHz)
}

// blankDisk returns an unformatted disk of the selected geometry.
func blankDisk() *floppy.Disk {
	d := config.Current
	return floppy.NewDisk(d.Cyls, d.Heads,
		mfm.RevolutionTicks(config.ClockHz, uint16(d.RPM)),
		mfm.CellTicks(config.ClockHz, uint16(d.KBps)))
}

// saveDisk writes a flux disk in the format given by the extension.
func saveDisk(filename string, disk *floppy.Disk) error {
	return hfe.Write(filename, disk.ToHFE(config.ClockHz))
}

// loadSectors reads a sector image from any supported file.
func loadSectors(filename string) (*hfe.SectorImage, error) {
	if hfe.DetectImageFormat(filename) == hfe.ImageFormatFD {
		return hfe.ReadFD(filename)
	}
	disk, err := hfe.Read(filename)
	if err != nil {
		return nil, err
	}
	return hfe.Decode(disk)
}

// saveSectors writes a sector image in the format given by the extension.
func saveSectors(filename string, img *hfe.SectorImage) error {
	switch hfe.DetectImageFormat(filename) {
	case hfe.ImageFormatFD:
		return hfe.WriteFD(filename, img)
	case hfe.ImageFormatHFE:
		return hfe.WriteHFE(filename, img.Encode())
	}
	return fmt.Errorf("unknown or unsupported image format for file: %s", filename)
}

func printProgress(cyl, head int) {
	fmt.Printf("\rSide %d, track %2d", head, cyl)
}
