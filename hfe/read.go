package hfe

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// Read a disk image file and return a Disk structure.
// The format is automatically detected from the file extension.
func Read(filename string) (*Disk, error) {
	switch DetectImageFormat(filename) {
	case ImageFormatHFE:
		return ReadHFE(filename)
	case ImageFormatFD:
		img, err := ReadFD(filename)
		if err != nil {
			return nil, err
		}
		return img.Encode(), nil
	default:
		return nil, fmt.Errorf("unknown or unsupported image format for file: %s", filename)
	}
}

// ReadHFE reads an HFE v1 file and returns a Disk structure.
func ReadHFE(filename string) (*Disk, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()
	return DecodeHFE(file)
}

// DecodeHFE parses an HFE v1 image.
func DecodeHFE(file io.ReadSeeker) (*Disk, error) {
	disk := &Disk{}

	// Read header
	if err := binary.Read(file, binary.LittleEndian, &disk.Header); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	sig := string(disk.Header.HeaderSignature[:])
	switch {
	case sig == HFEv3Signature:
		return nil, errors.New("HFE v3 format is not supported, only v1 is supported")
	case sig != HFEv1Signature:
		return nil, fmt.Errorf("invalid HFE signature: %q (expected %s)", sig, HFEv1Signature)
	case disk.Header.FormatRevision == 1:
		return nil, fmt.Errorf("HFE v2 format (revision 1) is not supported, only v1 is supported")
	case disk.Header.FormatRevision != 0:
		return nil, fmt.Errorf("invalid HFE v1 format revision: %d (expected 0)", disk.Header.FormatRevision)
	}

	// Validate basic fields
	if disk.Header.BitRate == 0 {
		return nil, errors.New("invalid bit rate")
	}
	if disk.Header.NumberOfTrack == 0 {
		return nil, errors.New("invalid number of tracks")
	}
	if disk.Header.NumberOfSide == 0 || disk.Header.NumberOfSide > 2 {
		return nil, errors.New("invalid number of sides")
	}

	// Read track offset list
	trackListOffset := int64(disk.Header.TrackListOffset) * BlockSize
	if _, err := file.Seek(trackListOffset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek to track list: %w", err)
	}

	trackHeaders := make([]TrackHeader, disk.Header.NumberOfTrack)
	if err := binary.Read(file, binary.LittleEndian, trackHeaders); err != nil {
		return nil, fmt.Errorf("failed to read track list: %w", err)
	}

	disk.Tracks = make([]TrackData, disk.Header.NumberOfTrack)
	for i := range trackHeaders {
		trackData, err := readTrack(file, &trackHeaders[i], disk.Header.NumberOfSide)
		if err != nil {
			return nil, fmt.Errorf("failed to read track %d: %w", i, err)
		}
		disk.Tracks[i] = *trackData
	}

	// Compute FloppyRPM from track #0 length if not set
	if disk.Header.FloppyRPM == 0 {
		trackBits := len(disk.Tracks[0].Side0) * 8
		if trackBits == 0 {
			return nil, errors.New("unknown RPM")
		}
		rpm := (60 * uint32(disk.Header.BitRate) * 2000) / uint32(trackBits)
		if rpm > 400 || rpm < 250 {
			return nil, errors.New("bad RPM")
		}
		if rpm < 330 {
			disk.Header.FloppyRPM = 300
		} else {
			disk.Header.FloppyRPM = 360
		}
	}
	return disk, nil
}

// readTrack reads a single track from the file
func readTrack(file io.ReadSeeker, th *TrackHeader, numSides uint8) (*TrackData, error) {
	// Track data occupies whole 512-byte blocks
	trackLen := int(th.TrackLen)
	if trackLen&0x1FF != 0 {
		trackLen = (trackLen & ^0x1FF) + 0x200
	}

	trackOffset := int64(th.Offset) * BlockSize
	if _, err := file.Seek(trackOffset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek to track data: %w", err)
	}

	trackBuf := make([]byte, trackLen)
	if _, err := io.ReadFull(file, trackBuf); err != nil {
		return nil, fmt.Errorf("failed to read track data: %w", err)
	}

	// Demux sides: side 0 is bytes 0-255, side 1 is bytes 256-511 of each 512-byte block
	// Apply byteBitsInverter during demuxing (convert from LSB-first to MSB-first)
	bitLen := int(th.TrackLen) / 2
	side0 := make([]byte, trackLen/2)
	var side1 []byte
	if numSides > 1 {
		side1 = make([]byte, trackLen/2)
	}
	for j := 0; j < trackLen; j += BlockSize {
		for k := 0; k < 256; k++ {
			side0[j/2+k] = byteBitsInverter[trackBuf[j+k]]
			if side1 != nil {
				side1[j/2+k] = byteBitsInverter[trackBuf[j+256+k]]
			}
		}
	}
	track := &TrackData{Side0: side0[:bitLen]}
	if side1 != nil {
		track.Side1 = side1[:bitLen]
	}
	return track, nil
}
