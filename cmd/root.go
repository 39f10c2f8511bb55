package cmd

import (
	"fmt"

	"github.com/sergev/thomfdc/config"
	"github.com/spf13/cobra"
)

var (
	driveName string
	traceList string
)

var rootCmd = &cobra.Command{
	Use:   "fdc",
	Short: "Thomson floppy controller emulator",
	Long: `The fdc tool runs disk images through an emulated Thomson THMFC1
floppy controller and its quick disk companion.`,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		err := config.Initialize()
		if err != nil {
			cobra.CheckErr(fmt.Errorf("failed to initialize config: %w", err))
		}
		err = config.Select(driveName)
		if err != nil {
			cobra.CheckErr(fmt.Errorf("failed to select drive: %w", err))
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&driveName, "drive", "d", "", "drive profile from ~/.fdc")
	rootCmd.PersistentFlags().StringVarP(&traceList, "trace", "t", "",
		"comma separated trace topics: state, regs, command, stat0, crc, flux, image, hw, read, write")
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}
