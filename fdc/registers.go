package fdc

// Register offsets
const (
	RegStat0 = 0 // read: status 0, write: command 0
	RegStat1 = 1 // read: status 1, write: command 1
	RegCmd2  = 2
	RegData  = 3
	RegClock = 4
	RegSect  = 5
	RegTrack = 6
	RegCell  = 7

	RegCmd0 = RegStat0
	RegCmd1 = RegStat1
)

// Status 0 bits
const (
	S0_BYTE  = 0x80 // byte ready in the data register
	S0_END   = 0x10 // operation complete
	S0_FREE  = 0x08 // controller idle
	S0_CRCER = 0x04 // CRC error
	S0_DREQ  = 0x02 // data request
	S0_SYNC  = 0x01 // sync mark under the head
)

// Status 1 bits
const (
	S1_INDX = 0x40
	S1_DKCH = 0x20
	S1_MTON = 0x10
	S1_TRK0 = 0x08
	S1_WPRT = 0x04
	S1_RDY  = 0x02
)

// Command 0 bits
const (
	C0_FM    = 0x20 // single density
	C0_ENSYN = 0x10 // sync enable
	C0_NOMCK = 0x08 // no missing clock
	C0_WGC   = 0x04 // write gate: format when in write mode
	C0_MODE  = 0x03
)

// Command 0 modes
const (
	ModeIdle       = 0
	ModeWrite      = 1
	ModeReadHeader = 2
	ModeRead       = 3
)

// Command 1 bits
const (
	C1_SIDE  = 0x10
	C1_DSYRD = 0x01 // sync only when ready
)

// Command 2 bits
const (
	C2_SISELB = 0x40 // side select, set for side 0
	C2_DIRECB = 0x20 // step direction, set for inward
	C2_STEP   = 0x10
	C2_MTON   = 0x04
	C2_DRS1   = 0x02
	C2_DRS0   = 0x01
)

// SizeCode returns the sector size code held in command 1.
func SizeCode(cmd1 byte) byte {
	return (cmd1 >> 5) & 3
}

// SectorSize returns the sector length selected by command 1.
func SectorSize(cmd1 byte) int {
	return 128 << SizeCode(cmd1)
}

// Precompensation returns the write precompensation field of command 1.
func Precompensation(cmd1 byte) byte {
	return (cmd1 >> 1) & 7
}

// Cmd1 assembles a command 1 value.
func Cmd1(side int, sizeCode byte) byte {
	v := (sizeCode & 3) << 5
	if side != 0 {
		v |= C1_SIDE
	}
	return v
}

// Cmd2 assembles a command 2 value for the given drive, side and motor.
func Cmd2(drive, side int, motor bool) byte {
	var v byte
	if drive == 0 {
		v |= C2_DRS0
	} else {
		v |= C2_DRS1
	}
	if side == 0 {
		v |= C2_SISELB
	}
	if motor {
		v |= C2_MTON
	}
	return v
}
