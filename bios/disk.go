package bios

import (
	"errors"
	"fmt"

	"github.com/sergev/thomfdc/hfe"
)

// Progress is called once per track with its position.
type Progress func(cyl, head int)

// ReadImage reads every sector of the disk in drive order. Sectors that
// fail keep their blank contents; the first failure is returned with
// the image.
func (h *Host) ReadImage(cyls, heads int, progress Progress) (*hfe.SectorImage, error) {
	img := hfe.NewSectorImage(cyls, heads)
	var first error
	for head := 0; head < heads; head++ {
		for cyl := 0; cyl < cyls; cyl++ {
			if progress != nil {
				progress(cyl, head)
			}
			for s := 1; s <= img.Sectors; s++ {
				data, err := h.ReadSector(cyl, head, s, img.SectorSize)
				if err != nil {
					if first == nil {
						first = err
					}
					if errors.Is(err, ErrNotFound) {
						continue
					}
				}
				copy(img.Sector(cyl, head, s), data)
			}
		}
	}
	return img, first
}

// WriteImage writes every sector of the image onto a formatted disk.
func (h *Host) WriteImage(img *hfe.SectorImage, progress Progress) error {
	for head := 0; head < img.Heads; head++ {
		for cyl := 0; cyl < img.Cyls; cyl++ {
			if progress != nil {
				progress(cyl, head)
			}
			for s := 1; s <= img.Sectors; s++ {
				if err := h.WriteSector(cyl, head, s, img.Sector(cyl, head, s)); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// FormatImage formats every track, recording the image contents.
func (h *Host) FormatImage(img *hfe.SectorImage, progress Progress) error {
	for head := 0; head < img.Heads; head++ {
		for cyl := 0; cyl < img.Cyls; cyl++ {
			if progress != nil {
				progress(cyl, head)
			}
			if err := h.FormatTrack(cyl, head, img.Track(cyl, head)); err != nil {
				return fmt.Errorf("format side %d: %w", head, err)
			}
		}
	}
	return nil
}
