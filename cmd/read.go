package cmd

import (
	"errors"
	"fmt"

	"github.com/sergev/thomfdc/bios"
	"github.com/sergev/thomfdc/config"
	"github.com/spf13/cobra"
)

var readCmd = &cobra.Command{
	Use:   "read DISK.EXT [DEST.EXT]",
	Short: "Read all sectors of a disk through the controller",
	Long: `Insert the disk image DISK.EXT in the emulated drive, read every
sector through the controller registers and save them to DEST.EXT.
By default the sectors are saved as 'image.fd'.
Supported image formats:
    *.hfe - HxC Floppy Emulator
    *.fd  - raw Thomson sector dump`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		mustFloppy()
		filename := "image.fd"
		if len(args) > 1 {
			filename = args[1]
		}

		disk, err := loadDisk(args[0])
		if err != nil {
			cobra.CheckErr(fmt.Errorf("failed to read file %s: %w", args[0], err))
		}
		m, err := newMachine(disk, config.BiosOptions())
		cobra.CheckErr(err)

		heads := disk.Heads
		if heads > config.Current.Heads {
			heads = config.Current.Heads
		}
		fmt.Printf("Reading %d tracks, %d side(s)\n", disk.Cyls, heads)
		img, err := m.host.ReadImage(disk.Cyls, heads, printProgress)
		m.host.Stop()
		fmt.Printf("\n")
		if err != nil {
			if !errors.Is(err, bios.ErrCRC) && !errors.Is(err, bios.ErrNotFound) {
				cobra.CheckErr(fmt.Errorf("failed to read disk: %w", err))
			}
			fmt.Printf("Warning: %v\n", err)
		}

		err = saveSectors(filename, img)
		if err != nil {
			cobra.CheckErr(fmt.Errorf("failed to write file: %w", err))
		}
		fmt.Printf("Image from disk saved to file '%s'.\n", filename)
	},
}

func init() {
	rootCmd.AddCommand(readCmd)
}
