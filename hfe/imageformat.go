package hfe

import (
	"path/filepath"
	"strings"
)

// ImageFormat represents a disk image format
type ImageFormat int

const (
	// ImageFormatUnknown represents an unknown or unrecognized format
	ImageFormatUnknown ImageFormat = iota
	ImageFormatHFE                 // HFE format - HxC Floppy Emulator
	ImageFormatFD                  // FD format - raw Thomson sector dump, side after side
	ImageFormatQD                  // QD format - raw Thomson quick-disk sector dump
)

// String returns the string representation of the ImageFormat
func (f ImageFormat) String() string {
	switch f {
	case ImageFormatHFE:
		return "HFE"
	case ImageFormatFD:
		return "FD"
	case ImageFormatQD:
		return "QD"
	default:
		return "Unknown"
	}
}

// DetectImageFormat detects the image format from a filename based on its extension.
// The extension check is case-insensitive. Returns ImageFormatUnknown if the format
// cannot be determined.
func DetectImageFormat(filename string) ImageFormat {
	ext := filepath.Ext(filename)
	if ext == "" {
		return ImageFormatUnknown
	}

	switch strings.ToLower(ext[1:]) {
	case "hfe":
		return ImageFormatHFE
	case "fd":
		return ImageFormatFD
	case "qd":
		return ImageFormatQD
	default:
		return ImageFormatUnknown
	}
}
