package fdc

// DriveStatus is the set of lines a drive reports back to the controller.
type DriveStatus struct {
	Index          bool
	WriteProtected bool
	Ready          bool
	Track0         bool
	DiskChanged    bool
	MotorOn        bool
}

// Drive is the control side of a storage device attached to the controller.
type Drive interface {
	Status(now uint64) DriveStatus
	SetSide(side int)
	SetDirection(inward bool)
	SetStep(asserted bool)
	SetMotor(on bool)
}

// FluxMedium is a drive that exchanges flux transitions with the controller.
type FluxMedium interface {
	Drive

	// NextTransition returns the first transition strictly after the
	// given time, or pll.Never.
	NextTransition(after uint64) uint64

	// WriteFlux replaces the recording between start and end.
	WriteFlux(start, end uint64, transitions []uint64)
}

// FixedRateMedium is a drive that exchanges whole bytes at a fixed rate.
type FixedRateMedium interface {
	Drive

	// BytePeriod is the duration of one byte, in ticks.
	BytePeriod() uint64

	// ByteAt returns the byte under the head at the given time.
	ByteAt(at uint64) byte

	// PutByte records a byte at the given time.
	PutByte(at uint64, b byte)
}

func (st DriveStatus) bits() byte {
	var v byte
	if st.Index {
		v |= S1_INDX
	}
	if st.DiskChanged {
		v |= S1_DKCH
	}
	if st.MotorOn {
		v |= S1_MTON
	}
	if st.Track0 {
		v |= S1_TRK0
	}
	if st.WriteProtected {
		v |= S1_WPRT
	}
	if st.Ready {
		v |= S1_RDY
	}
	return v
}
