package cmd

import (
	"fmt"

	"github.com/sergev/thomfdc/config"
	"github.com/sergev/thomfdc/hfe"
	"github.com/spf13/cobra"
)

var eraseCmd = &cobra.Command{
	Use:   "erase DISK.hfe",
	Short: "Create an unformatted disk",
	Long: `Create an unformatted HFE disk of the selected drive geometry.
Every track is blank, with no flux transitions.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		mustFloppy()
		if hfe.DetectImageFormat(args[0]) != hfe.ImageFormatHFE {
			cobra.CheckErr(fmt.Errorf("only HFE images can hold an unformatted disk: %s", args[0]))
		}
		err := saveDisk(args[0], blankDisk())
		if err != nil {
			cobra.CheckErr(fmt.Errorf("failed to write file: %w", err))
		}
		fmt.Printf("Blank %d track, %d side disk saved to file '%s'.\n",
			config.Current.Cyls, config.Current.Heads, args[0])
	},
}

func init() {
	rootCmd.AddCommand(eraseCmd)
}
