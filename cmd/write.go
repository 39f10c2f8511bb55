package cmd

import (
	"fmt"

	"github.com/sergev/thomfdc/config"
	"github.com/spf13/cobra"
)

var writeCmd = &cobra.Command{
	Use:   "write SRC.EXT DISK.EXT",
	Short: "Write sectors onto a formatted disk through the controller",
	Long: `Write every sector of SRC.EXT onto the formatted disk image DISK.EXT
through the controller registers, then save the disk back.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		mustFloppy()
		img, err := loadSectors(args[0])
		if err != nil {
			cobra.CheckErr(fmt.Errorf("failed to read file %s: %w", args[0], err))
		}
		disk, err := loadDisk(args[1])
		if err != nil {
			cobra.CheckErr(fmt.Errorf("failed to read file %s: %w", args[1], err))
		}
		if img.Cyls > disk.Cyls || img.Heads > disk.Heads {
			cobra.CheckErr(fmt.Errorf("image of %dx%d does not fit on a disk of %dx%d",
				img.Cyls, img.Heads, disk.Cyls, disk.Heads))
		}
		m, err := newMachine(disk, config.BiosOptions())
		cobra.CheckErr(err)

		fmt.Printf("Writing %d tracks, %d side(s)\n", img.Cyls, img.Heads)
		err = m.host.WriteImage(img, printProgress)
		m.host.Stop()
		fmt.Printf("\n")
		if err != nil {
			cobra.CheckErr(fmt.Errorf("failed to write disk: %w", err))
		}

		err = saveDisk(args[1], disk)
		if err != nil {
			cobra.CheckErr(fmt.Errorf("failed to write file: %w", err))
		}
		fmt.Printf("Disk '%s' updated from '%s'.\n", args[1], args[0])
	},
}

func init() {
	rootCmd.AddCommand(writeCmd)
}
