package hfe

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// Write a Disk structure to a file, according to its format.
func Write(filename string, disk *Disk) error {
	switch DetectImageFormat(filename) {
	case ImageFormatHFE:
		return WriteHFE(filename, disk)
	case ImageFormatFD:
		img, err := Decode(disk)
		if err != nil {
			return err
		}
		return WriteFD(filename, img)
	default:
		return fmt.Errorf("unknown or unsupported image format for file: %s", filename)
	}
}

// WriteHFE writes a Disk structure to an HFE v1 file.
func WriteHFE(filename string, disk *Disk) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := EncodeHFE(file, disk); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// EncodeHFE serializes a disk as HFE v1.
func EncodeHFE(w io.Writer, disk *Disk) error {
	if len(disk.Tracks) > BlockSize/4 {
		return fmt.Errorf("too many tracks for single track list block")
	}
	header := disk.Header
	copy(header.HeaderSignature[:], HFEv1Signature)
	header.FormatRevision = 0
	header.NumberOfTrack = uint8(len(disk.Tracks))
	header.TrackListOffset = 1

	// Header block, padded with 0xFF
	headerBuf := make([]byte, BlockSize)
	for i := range headerBuf {
		headerBuf[i] = 0xFF
	}
	copy(headerBuf[0:8], header.HeaderSignature[:])
	headerBuf[8] = header.FormatRevision
	headerBuf[9] = header.NumberOfTrack
	headerBuf[10] = header.NumberOfSide
	headerBuf[11] = header.TrackEncoding
	binary.LittleEndian.PutUint16(headerBuf[12:14], header.BitRate)
	binary.LittleEndian.PutUint16(headerBuf[14:16], header.FloppyRPM)
	headerBuf[16] = header.FloppyInterfaceMode
	headerBuf[17] = header.WriteProtected
	binary.LittleEndian.PutUint16(headerBuf[18:20], header.TrackListOffset)
	headerBuf[20] = header.WriteAllowed
	headerBuf[21] = header.SingleStep
	headerBuf[22] = header.Track0S0AltEncoding
	headerBuf[23] = header.Track0S0Encoding
	headerBuf[24] = header.Track0S1AltEncoding
	headerBuf[25] = header.Track0S1Encoding
	if _, err := w.Write(headerBuf); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	// Track list: both sides share each track entry
	trackListBuf := make([]byte, BlockSize)
	for i := range trackListBuf {
		trackListBuf[i] = 0xFF
	}
	trackHeaders := make([]TrackHeader, len(disk.Tracks))
	trackPos := header.TrackListOffset + 1
	for i, track := range disk.Tracks {
		maxLen := len(track.Side0)
		if len(track.Side1) > maxLen {
			maxLen = len(track.Side1)
		}
		bytelen := maxLen * 2
		blocks := (bytelen + BlockSize - 1) / BlockSize
		trackHeaders[i] = TrackHeader{Offset: trackPos, TrackLen: uint16(bytelen)}
		trackPos += uint16(blocks)
		binary.LittleEndian.PutUint16(trackListBuf[i*4:], trackHeaders[i].Offset)
		binary.LittleEndian.PutUint16(trackListBuf[i*4+2:], trackHeaders[i].TrackLen)
	}
	if _, err := w.Write(trackListBuf); err != nil {
		return fmt.Errorf("failed to write track list: %w", err)
	}

	for i, track := range disk.Tracks {
		if err := writeRawTrack(w, &trackHeaders[i], track.Side0, track.Side1, header.NumberOfSide); err != nil {
			return fmt.Errorf("failed to write track %d: %w", i, err)
		}
	}
	return nil
}

// writeRawTrack interleaves both sides in 256-byte halves of each block
func writeRawTrack(w io.Writer, th *TrackHeader, side0, side1 []byte, numSides uint8) error {
	trackLen := (int(th.TrackLen) + BlockSize - 1) / BlockSize * BlockSize

	// Pad with 0xFF past the end of the bitstream
	side0Buf := make([]byte, trackLen/2)
	side1Buf := make([]byte, trackLen/2)
	for i := range side0Buf {
		side0Buf[i] = 0xFF
		side1Buf[i] = 0xFF
	}
	copy(side0Buf, side0)
	if numSides > 1 {
		copy(side1Buf, side1)
	} else {
		copy(side1Buf, side0Buf)
	}

	trackBuf := make([]byte, trackLen)
	for k := 0; k < trackLen/BlockSize; k++ {
		for j := 0; j < 256; j++ {
			trackBuf[k*BlockSize+j] = byteBitsInverter[side0Buf[k*256+j]]
			trackBuf[k*BlockSize+j+256] = byteBitsInverter[side1Buf[k*256+j]]
		}
	}
	if _, err := w.Write(trackBuf); err != nil {
		return fmt.Errorf("failed to write track data: %w", err)
	}
	return nil
}
