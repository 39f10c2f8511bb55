package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jroimartin/gocui"
	"github.com/sergev/thomfdc/config"
	"github.com/sergev/thomfdc/fdc"
	"github.com/spf13/cobra"
)

var (
	monitorPolls int
	monitorDelay time.Duration
)

var monitorCmd = &cobra.Command{
	Use:   "monitor DISK.EXT",
	Short: "Watch the controller registers while reading a disk",
	Long: `Read every sector of DISK.EXT through the controller and show the
registers, the state machine and the per-track results in a terminal
window. Press Ctrl-C to quit.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		mustFloppy()
		disk, err := loadDisk(args[0])
		if err != nil {
			cobra.CheckErr(fmt.Errorf("failed to read file %s: %w", args[0], err))
		}

		g, err := gocui.NewGui(gocui.OutputNormal)
		cobra.CheckErr(err)
		defer g.Close()
		g.SetManagerFunc(monitorLayout)
		err = g.SetKeybinding("", gocui.KeyCtrlC, gocui.ModNone, func(*gocui.Gui, *gocui.View) error {
			return gocui.ErrQuit
		})
		cobra.CheckErr(err)

		if monitorPolls <= 0 {
			monitorPolls = 1
		}
		var m *machine
		polls := 0
		opts := config.BiosOptions()
		opts.OnPoll = func(stat0 byte) {
			polls++
			if polls%monitorPolls != 0 {
				return
			}
			text := registerDump(m.ctl, stat0)
			g.Update(func(g *gocui.Gui) error {
				v, err := g.View("registers")
				if err != nil {
					return err
				}
				v.Clear()
				fmt.Fprint(v, text)
				return nil
			})
		}
		m, err = newMachine(disk, opts)
		cobra.CheckErr(err)

		logf := func(format string, args ...any) {
			line := fmt.Sprintf(format, args...)
			g.Update(func(g *gocui.Gui) error {
				v, err := g.View("log")
				if err != nil {
					return err
				}
				fmt.Fprintln(v, line)
				return nil
			})
		}
		go func() {
			_, err := m.host.ReadImage(disk.Cyls, disk.Heads, func(cyl, head int) {
				logf("side %d track %2d", head, cyl)
				time.Sleep(monitorDelay)
			})
			m.host.Stop()
			if err != nil {
				logf("read: %v", err)
			}
			logf("done, %d polls", polls)
		}()

		err = g.MainLoop()
		if err != nil && !errors.Is(err, gocui.ErrQuit) {
			cobra.CheckErr(err)
		}
	},
}

// registerDump formats the controller state for display.
func registerDump(ctl *fdc.Controller, stat0 byte) string {
	s := ctl.Snapshot()
	var b strings.Builder
	fmt.Fprintf(&b, " state %-18s time %d\n", s.State, s.LastSync)
	fmt.Fprintf(&b, " stat0 %02x  cmd0 %02x  cmd1 %02x  cmd2 %02x\n", stat0, s.Cmd0, s.Cmd1, s.Cmd2)
	fmt.Fprintf(&b, " track %02x  sect %02x  rdata %02x  wdata %02x  clk %02x\n", s.Trck, s.Sect, s.RData, s.WData, s.Clk)
	fmt.Fprintf(&b, " shift %04x  crc %04x  count %d\n", s.Codec.Shift, s.Codec.CRC, s.Codec.Count)
	fmt.Fprintf(&b, " pll period %.3f  phase %.3f\n", s.PLL.Period, s.PLL.PhaseAdjust)
	return b.String()
}

func monitorLayout(g *gocui.Gui) error {
	maxX, maxY := g.Size()
	if v, err := g.SetView("registers", 0, 0, maxX-1, 7); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Controller"
	}
	if v, err := g.SetView("log", 0, 8, maxX-1, maxY-1); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Tracks"
		v.Autoscroll = true
	}
	return nil
}

func init() {
	monitorCmd.Flags().IntVar(&monitorPolls, "refresh", 2048, "status polls between screen updates")
	monitorCmd.Flags().DurationVar(&monitorDelay, "delay", 200*time.Millisecond, "pause after every track")
	rootCmd.AddCommand(monitorCmd)
}
