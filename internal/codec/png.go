package codec

import (
	"bytes"
	"fmt"
	"image/png"

	"layout-snapshot/internal/buffer"

	"golang.org/x/xerrors"
)

// DecodeError reports bytes at Path that are not a decodable PNG.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode PNG %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Decode decodes PNG data. path only labels errors.
func Decode(path string, data []byte) (*buffer.Buffer, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	return buffer.FromImage(img), nil
}

var encoder = png.Encoder{CompressionLevel: png.DefaultCompression}

func Encode(b *buffer.Buffer) ([]byte, error) {
	var out bytes.Buffer
	if err := encoder.Encode(&out, b.NRGBA()); err != nil {
		return nil, xerrors.Errorf("failed to encode PNG: %w", err)
	}
	return out.Bytes(), nil
}
