package cmd

import (
	"fmt"
	"strings"

	"github.com/sergev/thomfdc/config"
	"github.com/sergev/thomfdc/fdc"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status [DISK.EXT]",
	Short: "Show the configuration and the status of a disk",
	Long: `Show the selected drive profile. With a disk image, insert it in the
emulated drive and show the drive lines and the sector headers of track 0.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Configuration script: ~/.fdc\n")
		fmt.Printf("Drive: %s (%s)\n", config.DriveName, config.Current.Type)
		if config.Current.Type == config.TypeFloppy {
			fmt.Printf("Geometry: %d tracks, %d side(s)\n", config.Current.Cyls, config.Current.Heads)
			fmt.Printf("Speed: %d RPM, %d kbps\n", config.Current.RPM, config.Current.KBps)
			if len(config.Images) > 0 {
				fmt.Printf("Built-in images: %s\n", strings.Join(config.Images, ", "))
			}
		} else {
			fmt.Printf("Checksum: %s\n", config.Checksum)
		}
		fmt.Printf("Clock: %d Hz\n", config.ClockHz)
		fmt.Printf("Overrun: %s\n", config.Overrun)
		fmt.Printf("Read header command: %t\n", config.ReadHead)
		if len(args) == 0 {
			return
		}

		mustFloppy()
		disk, err := loadDisk(args[0])
		if err != nil {
			cobra.CheckErr(fmt.Errorf("failed to read file %s: %w", args[0], err))
		}
		m, err := newMachine(disk, config.BiosOptions())
		cobra.CheckErr(err)
		defer m.host.Stop()

		fmt.Printf("\nDisk: %s, %d tracks, %d side(s)\n", args[0], disk.Cyls, disk.Heads)
		fmt.Printf("Drive lines: %s\n", stat1Names(m.ctl.Read(fdc.RegStat1)))
		for head := 0; head < disk.Heads; head++ {
			headers, err := m.host.ReadHeaders(0, head)
			if err != nil {
				fmt.Printf("Side %d: %v\n", head, err)
				continue
			}
			order := make([]string, len(headers))
			for i, h := range headers {
				order[i] = fmt.Sprint(h.Sector)
			}
			fmt.Printf("Side %d track 0: %d headers, size code %d, sectors %s\n",
				head, len(headers), headers[0].Size, strings.Join(order, " "))
		}
	},
}

// stat1Names lists the asserted status 1 lines.
func stat1Names(st byte) string {
	names := []struct {
		bit  byte
		name string
	}{
		{fdc.S1_INDX, "INDEX"},
		{fdc.S1_DKCH, "DISK-CHANGED"},
		{fdc.S1_MTON, "MOTOR"},
		{fdc.S1_TRK0, "TRACK0"},
		{fdc.S1_WPRT, "WRITE-PROTECT"},
		{fdc.S1_RDY, "READY"},
	}
	var list []string
	for _, n := range names {
		if st&n.bit != 0 {
			list = append(list, n.name)
		}
	}
	if len(list) == 0 {
		return "none"
	}
	return strings.Join(list, " ")
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
