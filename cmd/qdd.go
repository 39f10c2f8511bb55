package cmd

import (
	"bytes"
	"fmt"
	"os"

	"github.com/sergev/thomfdc/config"
	"github.com/sergev/thomfdc/hfe"
	"github.com/sergev/thomfdc/qdd"
	"github.com/spf13/cobra"
)

var qddCmd = &cobra.Command{
	Use:   "qdd",
	Short: "Work with quick disk images",
	Long: `Convert quick disk images between the 400-sector .qd dump and the raw
track recorded on the medium. The checksum layout comes from ~/.fdc.`,
}

var qddPackCmd = &cobra.Command{
	Use:   "pack SRC.qd DEST.trk",
	Short: "Lay out a sector image as a raw track",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		image := readQD(args[0])
		track, err := qdd.BuildTrack(image, config.Checksum)
		if err != nil {
			cobra.CheckErr(fmt.Errorf("%s: %w", args[0], err))
		}
		err = os.WriteFile(args[1], track, 0644)
		if err != nil {
			cobra.CheckErr(fmt.Errorf("failed to write file: %w", err))
		}
		fmt.Printf("Track of %d bytes saved to file '%s'.\n", len(track), args[1])
	},
}

var qddUnpackCmd = &cobra.Command{
	Use:   "unpack SRC.trk DEST.qd",
	Short: "Extract the sectors of a raw track",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		track, err := os.ReadFile(args[0])
		if err != nil {
			cobra.CheckErr(fmt.Errorf("failed to read file: %w", err))
		}
		image := make([]byte, qdd.ImageLength)
		n, err := qdd.UnloadTrack(track, image, config.Checksum)
		if err != nil {
			fmt.Printf("Warning: %v\n", err)
		}
		err = os.WriteFile(args[1], image, 0644)
		if err != nil {
			cobra.CheckErr(fmt.Errorf("failed to write file: %w", err))
		}
		fmt.Printf("%d of %d sectors saved to file '%s'.\n", n, qdd.SectorCount, args[1])
	},
}

var qddVerifyCmd = &cobra.Command{
	Use:   "verify SRC.qd",
	Short: "Check that an image survives the drive",
	Long: `Insert SRC.qd in an emulated quick disk drive, unload it and compare
the result with the original image.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		image := readQD(args[0])
		track, err := qdd.BuildTrack(image, config.Checksum)
		if err != nil {
			cobra.CheckErr(fmt.Errorf("%s: %w", args[0], err))
		}
		back := make([]byte, qdd.ImageLength)
		n, err := qdd.UnloadTrack(track, back, config.Checksum)
		if err != nil {
			cobra.CheckErr(fmt.Errorf("%s: %w", args[0], err))
		}
		if !bytes.Equal(back, image) {
			for i := 0; i < qdd.SectorCount; i++ {
				off := i * qdd.SectorLength
				if !bytes.Equal(back[off:off+qdd.SectorLength], image[off:off+qdd.SectorLength]) {
					cobra.CheckErr(fmt.Errorf("sector %d differs after unload", i))
				}
			}
		}
		fmt.Printf("%s: %d sectors, %s checksum, track of %d bytes: OK\n",
			args[0], n, config.Checksum, len(track))
	},
}

// readQD reads a quick disk sector image.
func readQD(filename string) []byte {
	if hfe.DetectImageFormat(filename) != hfe.ImageFormatQD {
		cobra.CheckErr(fmt.Errorf("not a quick disk image: %s", filename))
	}
	image, err := os.ReadFile(filename)
	if err != nil {
		cobra.CheckErr(fmt.Errorf("failed to read file: %w", err))
	}
	return image
}

func init() {
	qddCmd.AddCommand(qddPackCmd, qddUnpackCmd, qddVerifyCmd)
	rootCmd.AddCommand(qddCmd)
}
