package image

import (
	"fmt"

	"layout-snapshot/internal/buffer"
)

type DiffResult struct {
	Image          *buffer.Buffer
	DiffPixelCount uint64
	// DiffAmount is DiffPixelCount relative to the pixel count (0.0 to 1.0).
	DiffAmount float64
	// RowCounts holds the number of differing pixels in each row.
	RowCounts []uint32
}

type Differ interface {
	Calculate(baseline *buffer.Buffer, target *buffer.Buffer) (*DiffResult, error)
}

type DimensionMismatchError struct {
	BaselineWidth  uint32
	BaselineHeight uint32
	TargetWidth    uint32
	TargetHeight   uint32
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("image dimensions differ: baseline=%dx%d, target=%dx%d", e.BaselineWidth, e.BaselineHeight, e.TargetWidth, e.TargetHeight)
}
