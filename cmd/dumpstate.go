package cmd

import (
	"bytes"
	"fmt"
	"os"

	"github.com/sergev/thomfdc/config"
	"github.com/sergev/thomfdc/fdc"
	"github.com/spf13/cobra"
)

var (
	dumpTrack  int
	dumpSide   int
	dumpSector int
	dumpBytes  int
)

var dumpStateCmd = &cobra.Command{
	Use:   "dump-state DISK.EXT [STATE.toml]",
	Short: "Save the controller state in the middle of a sector read",
	Long: `Read one sector of DISK.EXT and capture the controller state after the
given number of data bytes. The state is written as TOML to STATE.toml,
or to standard output.`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		mustFloppy()
		disk, err := loadDisk(args[0])
		if err != nil {
			cobra.CheckErr(fmt.Errorf("failed to read file %s: %w", args[0], err))
		}

		var m *machine
		var state bytes.Buffer
		seen := 0
		opts := config.BiosOptions()
		opts.OnPoll = func(stat0 byte) {
			if stat0&fdc.S0_BYTE == 0 {
				return
			}
			seen++
			if seen == dumpBytes {
				cobra.CheckErr(m.ctl.Save(&state))
			}
		}
		m, err = newMachine(disk, opts)
		cobra.CheckErr(err)

		_, err = m.host.ReadSector(dumpTrack, dumpSide, dumpSector, 256)
		m.host.Stop()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
		if state.Len() == 0 {
			cobra.CheckErr(m.ctl.Save(&state))
		}

		if len(args) < 2 {
			os.Stdout.Write(state.Bytes())
			return
		}
		err = os.WriteFile(args[1], state.Bytes(), 0644)
		if err != nil {
			cobra.CheckErr(fmt.Errorf("failed to write file: %w", err))
		}
		fmt.Printf("Controller state saved to file '%s'.\n", args[1])
	},
}

func init() {
	dumpStateCmd.Flags().IntVar(&dumpTrack, "track", 0, "track to read")
	dumpStateCmd.Flags().IntVar(&dumpSide, "side", 0, "side to read")
	dumpStateCmd.Flags().IntVar(&dumpSector, "sector", 1, "sector to read")
	dumpStateCmd.Flags().IntVar(&dumpBytes, "bytes", 128, "data bytes transferred before the capture")
	rootCmd.AddCommand(dumpStateCmd)
}
