package slice

import (
	"errors"

	"layout-snapshot/internal/buffer"
)

var ErrInvalidParts = errors.New("slice count must be at least 1")

// Strip is one horizontal band of a parent image covering rows [YStart, YEnd).
type Strip struct {
	// Index is 1-based.
	Index  uint32
	YStart uint32
	YEnd   uint32
	Image  *buffer.Buffer
}

// StripHeight returns ceil(height / parts).
func StripHeight(height uint32, parts uint32) uint32 {
	return uint32((uint64(height) + uint64(parts) - 1) / uint64(parts))
}

// Slice partitions img into at most parts strips of StripHeight rows each;
// only the last strip may be shorter. Strips that would be empty are skipped,
// so fewer than parts strips are returned when parts exceeds the height.
func Slice(img *buffer.Buffer, parts uint32) ([]Strip, error) {
	if parts == 0 {
		return nil, ErrInvalidParts
	}
	if img.Height == 0 {
		return []Strip{}, nil
	}

	stripHeight := StripHeight(img.Height, parts)
	stride := img.RowStride()

	strips := make([]Strip, 0, parts)
	for i := uint32(0); i < parts; i++ {
		yStart := uint64(i) * uint64(stripHeight)
		yEnd := min(yStart+uint64(stripHeight), uint64(img.Height))
		if yEnd <= yStart {
			continue
		}

		// rows are contiguous, so a strip is a single byte range of the parent
		pix := make([]byte, int(yEnd-yStart)*stride)
		copy(pix, img.Pix[int(yStart)*stride:int(yEnd)*stride])

		strips = append(strips, Strip{
			Index:  i + 1,
			YStart: uint32(yStart),
			YEnd:   uint32(yEnd),
			Image: &buffer.Buffer{
				Width:  img.Width,
				Height: uint32(yEnd - yStart),
				Pix:    pix,
			},
		})
	}

	return strips, nil
}
