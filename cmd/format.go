package cmd

import (
	"fmt"

	"github.com/sergev/thomfdc/config"
	"github.com/sergev/thomfdc/hfe"
	"github.com/sergev/thomfdc/images"
	"github.com/spf13/cobra"
)

var formatImage string

var formatCmd = &cobra.Command{
	Use:   "format DISK.EXT [SRC.EXT]",
	Short: "Format a blank disk through the controller",
	Long: `Format a blank disk of the selected drive geometry through the
controller registers and save it to DISK.EXT. Sectors are filled from
SRC.EXT, or from a built-in image chosen with --image, otherwise
with 0xE5. Built-in images of the drive are listed by 'fdc status'.`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		mustFloppy()
		disk := blankDisk()
		img := hfe.NewSectorImage(disk.Cyls, disk.Heads)
		switch {
		case len(args) > 1:
			var err error
			img, err = loadSectors(args[1])
			if err != nil {
				cobra.CheckErr(fmt.Errorf("failed to read file %s: %w", args[1], err))
			}
		case formatImage != "":
			var err error
			img, err = builtinImage(formatImage)
			if err != nil {
				cobra.CheckErr(err)
			}
		}
		if img.Cyls > disk.Cyls || img.Heads > disk.Heads {
			cobra.CheckErr(fmt.Errorf("image of %dx%d does not fit drive %s",
				img.Cyls, img.Heads, config.DriveName))
		}
		m, err := newMachine(disk, config.BiosOptions())
		cobra.CheckErr(err)

		fmt.Printf("Formatting %d tracks, %d side(s)\n", img.Cyls, img.Heads)
		err = m.host.FormatImage(img, printProgress)
		m.host.Stop()
		fmt.Printf("\n")
		if err != nil {
			cobra.CheckErr(fmt.Errorf("failed to format disk: %w", err))
		}

		err = saveDisk(args[0], disk)
		if err != nil {
			cobra.CheckErr(fmt.Errorf("failed to write file: %w", err))
		}
		fmt.Printf("Formatted disk saved to file '%s'.\n", args[0])
	},
}

// builtinImage returns a built-in image listed for the current drive.
func builtinImage(name string) (*hfe.SectorImage, error) {
	listed := false
	for _, n := range config.Images {
		listed = listed || n == name
	}
	if !listed {
		return nil, fmt.Errorf("image %q is not available for drive %s", name, config.DriveName)
	}
	filename, err := config.GetImageFilename(name)
	if err != nil {
		return nil, err
	}
	data, err := images.GetImage(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to get embedded image %q: %w", filename, err)
	}
	cyls, heads, err := hfe.Geometry(int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("embedded image %q: %w", filename, err)
	}
	img := hfe.NewSectorImage(cyls, heads)
	copy(img.Data, data)
	return img, nil
}

func init() {
	formatCmd.Flags().StringVarP(&formatImage, "image", "i", "", "built-in image to record")
	rootCmd.AddCommand(formatCmd)
}
