package pipeline

import (
	"errors"
	"fmt"

	"layout-snapshot/internal/codec"
	diffimage "layout-snapshot/internal/diff/image"
)

// MissingInputFileError reports a required input image that is not in storage.
type MissingInputFileError struct {
	// Role is "reference" or "current".
	Role string
	Path string
}

func (e *MissingInputFileError) Error() string {
	if e.Role == "reference" {
		return fmt.Sprintf("missing reference image %s: copy an approved current image to this path first", e.Path)
	}
	return fmt.Sprintf("missing %s image %s", e.Role, e.Path)
}

// Anticipated reports whether err is one of the failures a user can fix
// without a stack trace: a missing input, an undecodable image or images of
// different sizes.
func Anticipated(err error) bool {
	var missing *MissingInputFileError
	var decode *codec.DecodeError
	var mismatch *diffimage.DimensionMismatchError
	return errors.As(err, &missing) || errors.As(err, &decode) || errors.As(err, &mismatch)
}
