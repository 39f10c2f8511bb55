package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/sergev/thomfdc/config"
	"github.com/sergev/thomfdc/fdc"
	"github.com/sergev/thomfdc/hostport"
	"github.com/sergev/thomfdc/qdd"
	"github.com/spf13/cobra"
)

var (
	bridgeList         bool
	bridgeBaud         int
	bridgeWrite        bool
	bridgeProtect      bool
	bridgeTickInterval time.Duration
)

var bridgeCmd = &cobra.Command{
	Use:   "bridge [PORT] IMAGE.qd",
	Short: "Serve a quick disk image over a serial port",
	Long: `Insert IMAGE.qd in an emulated quick disk drive and wire it to a host
serial port the way the CQ 90-028 bridge wires it to the serial chip:
DSR requests the motor, RTS reports write protect, track bytes flow on
the data lines. Without PORT the first known USB serial bridge is used.
Press Ctrl-C to stop; a modified image is saved back.`,
	Args: cobra.RangeArgs(0, 2),
	Run: func(cmd *cobra.Command, args []string) {
		if bridgeList {
			listPorts()
			return
		}
		if len(args) == 0 {
			cobra.CheckErr(fmt.Errorf("missing quick disk image"))
		}
		filename := args[len(args)-1]
		portName := ""
		if len(args) == 2 {
			portName = args[0]
		} else {
			ports, err := hostport.List()
			cobra.CheckErr(err)
			port, err := hostport.Detect(ports)
			cobra.CheckErr(err)
			portName = port.Name
		}

		image := readQD(filename)
		_, qddMask, err := parseTrace(traceList)
		cobra.CheckErr(err)
		opts := config.QDDOptions()
		opts.Trace = qddMask
		opts.Logger = traceLogger(qddMask)

		clock := fdc.NewWallClock(config.ClockHz)
		drive := qdd.NewDrive(clock, opts)
		err = drive.Insert(image, bridgeProtect)
		if err != nil {
			cobra.CheckErr(fmt.Errorf("%s: %w", filename, err))
		}

		adapter, err := hostport.Open(portName, bridgeBaud)
		cobra.CheckErr(err)
		defer adapter.Close()
		bridge := qdd.NewBridge(clock, drive, adapter)
		if bridgeWrite {
			bridge.SetWriteGate(0)
		}
		fmt.Printf("Serving '%s' on %s, press Ctrl-C to stop\n", filename, portName)

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt)
		ticker := time.NewTicker(bridgeTickInterval)
		defer ticker.Stop()
	loop:
		for {
			select {
			case <-stop:
				break loop
			case <-ticker.C:
				bridge.Sync()
				if err := adapter.Flush(); err != nil {
					cobra.CheckErr(err)
				}
				if err := adapter.Err(); err != nil {
					cobra.CheckErr(err)
				}
			}
		}

		back, err := drive.Eject()
		if err != nil {
			fmt.Printf("\nWarning: %v\n", err)
		}
		if bridgeWrite && back != nil {
			err = os.WriteFile(filename, back, 0644)
			if err != nil {
				cobra.CheckErr(fmt.Errorf("failed to write file: %w", err))
			}
			fmt.Printf("\nImage saved to file '%s'.\n", filename)
		}
	},
}

func listPorts() {
	ports, err := hostport.List()
	cobra.CheckErr(err)
	for _, port := range ports {
		name := ""
		if info, ok := hostport.Match(port); ok {
			name = info.Name
		}
		fmt.Printf("%-20s %4s:%-4s %s\n", port.Name, port.VID, port.PID, name)
	}
}

func init() {
	bridgeCmd.Flags().BoolVarP(&bridgeList, "list", "l", false, "list serial ports and exit")
	bridgeCmd.Flags().IntVarP(&bridgeBaud, "baud", "b", 115200, "serial port speed")
	bridgeCmd.Flags().BoolVarP(&bridgeWrite, "write", "w", false, "open the write gate and save the image on exit")
	bridgeCmd.Flags().BoolVar(&bridgeProtect, "protect", false, "insert the disk write protected")
	bridgeCmd.Flags().DurationVar(&bridgeTickInterval, "interval", 10*time.Millisecond, "host polling interval")
	rootCmd.AddCommand(bridgeCmd)
}
