package fdc

import (
	"fmt"
	"io"

	"github.com/BurntSushi/toml"
	"github.com/sergev/thomfdc/pll"
)

// Snapshot is the persisted state of a controller.
type Snapshot struct {
	State    string `toml:"state"`
	LastSync uint64 `toml:"last_sync"`

	Cmd0  uint8 `toml:"cmd0"`
	Cmd1  uint8 `toml:"cmd1"`
	Cmd2  uint8 `toml:"cmd2"`
	Stat0 uint8 `toml:"stat0"`
	RData uint8 `toml:"rdata"`
	WData uint8 `toml:"wdata"`
	Clk   uint8 `toml:"clk"`
	Sect  uint8 `toml:"sect"`
	Trck  uint8 `toml:"trck"`
	Cell  uint8 `toml:"cell"`

	Codec CodecSnapshot `toml:"codec"`
	PLL   PLLSnapshot   `toml:"pll"`

	MotorOff   bool   `toml:"motor_off"` // motor-off timer armed
	MotorOffAt uint64 `toml:"motor_off_at"`
}

// CodecSnapshot holds the shift registers and counters.
type CodecSnapshot struct {
	Shift      uint16 `toml:"shift"`
	Data       uint8  `toml:"data"`
	Clock      uint8  `toml:"clock"`
	CRC        uint16 `toml:"crc"`
	Phase      bool   `toml:"phase"`
	Count      uint32 `toml:"count"`
	FM         bool   `toml:"fm"`
	Verbatim   bool   `toml:"verbatim"`
	ShiftData  uint8  `toml:"shift_data"`
	ShiftClock uint8  `toml:"shift_clock"`
	LastBit    uint8  `toml:"last_bit"`
}

// PLLSnapshot holds the recovered clock.
type PLLSnapshot struct {
	PeriodIdeal float64 `toml:"period_ideal"`
	Period      float64 `toml:"period"`
	PhaseAdjust float64 `toml:"phase_adjust"`
	FreqHist    int     `toml:"freq_hist"`
	Time        uint64  `toml:"time"`
}

// Snapshot captures the controller state. Pending write flux is
// committed to the medium first.
func (c *Controller) Snapshot() Snapshot {
	c.Sync()
	c.unit.flush(c.lastSync)
	s := Snapshot{
		State:    c.state.String(),
		LastSync: c.lastSync,
		Cmd0:     c.cmd0,
		Cmd1:     c.cmd1,
		Cmd2:     c.cmd2,
		Stat0:    c.stat0,
		RData:    c.rdata,
		WData:    c.wdata,
		Clk:      c.clk,
		Sect:     c.sect,
		Trck:     c.trck,
		Cell:     c.cell,
		Codec: CodecSnapshot{
			Shift:      c.codec.Shift,
			Data:       c.codec.Data,
			Clock:      c.codec.Clock,
			CRC:        c.codec.CRC,
			Phase:      c.codec.Phase,
			Count:      c.codec.Count,
			FM:         c.codec.FM,
			Verbatim:   c.codec.Verbatim,
			ShiftData:  c.codec.ShiftData,
			ShiftClock: c.codec.ShiftClock,
			LastBit:    c.codec.LastBit,
		},
		PLL: PLLSnapshot{
			PeriodIdeal: c.pll.PeriodIdeal,
			Period:      c.pll.Period,
			PhaseAdjust: c.pll.PhaseAdjust,
			FreqHist:    c.pll.FreqHist,
			Time:        c.pll.Time,
		},
	}
	if c.motorOffAt != pll.Never {
		s.MotorOff = true
		s.MotorOffAt = c.motorOffAt
	}
	return s
}

// Restore loads a snapshot. The drive selection is re-derived from
// command 2 and the attached drives.
func (c *Controller) Restore(s Snapshot) error {
	state, err := ParseState(s.State)
	if err != nil {
		return err
	}
	c.unit.flush(c.lastSync)

	c.state = state
	c.prevState = state
	c.lastSync = s.LastSync
	c.cmd0, c.cmd1, c.cmd2 = s.Cmd0, s.Cmd1, s.Cmd2
	c.stat0 = s.Stat0
	c.rdata, c.wdata, c.clk = s.RData, s.WData, s.Clk
	c.sect, c.trck, c.cell = s.Sect, s.Trck, s.Cell

	c.codec.Shift = s.Codec.Shift
	c.codec.Data = s.Codec.Data
	c.codec.Clock = s.Codec.Clock
	c.codec.CRC = s.Codec.CRC
	c.codec.Phase = s.Codec.Phase
	c.codec.Count = s.Codec.Count
	c.codec.FM = s.Codec.FM
	c.codec.Verbatim = s.Codec.Verbatim
	c.codec.ShiftData = s.Codec.ShiftData
	c.codec.ShiftClock = s.Codec.ShiftClock
	c.codec.LastBit = s.Codec.LastBit
	c.codec.SyncData = s.WData
	c.codec.SyncClock = s.Clk

	c.cur = nil
	c.unit = nil
	c.selectDrive()

	c.pll.SetClock(s.PLL.PeriodIdeal)
	c.pll.Reset(s.PLL.Time)
	c.pll.Period = s.PLL.Period
	c.pll.PhaseAdjust = s.PLL.PhaseAdjust
	c.pll.FreqHist = s.PLL.FreqHist

	c.motorOffAt = pll.Never
	if s.MotorOff {
		c.motorOffAt = s.MotorOffAt
	}
	return nil
}

// Save writes the controller state as TOML.
func (c *Controller) Save(w io.Writer) error {
	if err := toml.NewEncoder(w).Encode(c.Snapshot()); err != nil {
		return fmt.Errorf("save controller state: %w", err)
	}
	return nil
}

// Load reads a controller state written by Save.
func (c *Controller) Load(r io.Reader) error {
	var s Snapshot
	if _, err := toml.NewDecoder(r).Decode(&s); err != nil {
		return fmt.Errorf("load controller state: %w", err)
	}
	return c.Restore(s)
}
