package mfm

import (
	"fmt"
)

// GenerateFluxTransitions converts MFM bitcells to flux transition times.
// Each 1 bitcell produces one transition in the middle of its cell.
// Return transition times in clock ticks relative to track start.
func GenerateFluxTransitions(mfmBits []byte, cellTicks uint64) ([]uint64, error) {
	if len(mfmBits) == 0 {
		return nil, fmt.Errorf("empty MFM data")
	}
	if cellTicks < 2 {
		return nil, fmt.Errorf("cell of %d ticks is too short", cellTicks)
	}

	var transitions []uint64
	half := cellTicks / 2

	// Process each bit in the MFM bitcell stream
	bitCount := len(mfmBits) * 8
	for i := 0; i < bitCount; i++ {
		// Extract bit at position i (MSB-first)
		byteIdx := i / 8
		bitIdx := 7 - (i % 8)
		if mfmBits[byteIdx]&(1<<bitIdx) != 0 {
			transitions = append(transitions, uint64(i)*cellTicks+half)
		}
	}
	return transitions, nil
}

// CellTicks returns the length of one MFM bitcell in clock ticks
// for the given data rate.
func CellTicks(clockHz uint64, bitRateKbps uint16) uint64 {
	return clockHz / (uint64(bitRateKbps) * 1000 * 2)
}

// RevolutionTicks returns the duration of one revolution in clock ticks.
func RevolutionTicks(clockHz uint64, rpm uint16) uint64 {
	return clockHz * 60 / uint64(rpm)
}

// TrackHalfBits returns the number of MFM bitcells per revolution.
func TrackHalfBits(bitRateKbps, rpm uint16) int {
	return int(bitRateKbps) * 1000 * 2 * 60 / int(rpm)
}
