package buffer

import (
	"image"
	"image/draw"

	"golang.org/x/xerrors"
)

// Buffer is a decoded raster: non-premultiplied RGBA, row-major, 8 bits per
// channel. A Buffer is never mutated after construction.
type Buffer struct {
	Width  uint32
	Height uint32
	Pix    []byte
}

func New(width uint32, height uint32) *Buffer {
	return &Buffer{
		Width:  width,
		Height: height,
		Pix:    make([]byte, int(width)*int(height)*4),
	}
}

// FromPix wraps pix without copying. The caller hands over ownership of pix.
func FromPix(width uint32, height uint32, pix []byte) (*Buffer, error) {
	if len(pix) != int(width)*int(height)*4 {
		return nil, xerrors.Errorf("pixel data length %d does not match %dx%d", len(pix), width, height)
	}
	return &Buffer{
		Width:  width,
		Height: height,
		Pix:    pix,
	}, nil
}

func FromImage(img image.Image) *Buffer {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if nrgba, ok := img.(*image.NRGBA); ok && nrgba.Stride == width*4 && nrgba.Rect.Min == (image.Point{}) {
		pix := make([]byte, len(nrgba.Pix[:width*height*4]))
		copy(pix, nrgba.Pix)
		return &Buffer{
			Width:  uint32(width),
			Height: uint32(height),
			Pix:    pix,
		}
	}

	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)

	return &Buffer{
		Width:  uint32(width),
		Height: uint32(height),
		Pix:    dst.Pix,
	}
}

// NRGBA returns a view sharing Pix. Callers must treat it as read-only.
func (b *Buffer) NRGBA() *image.NRGBA {
	return &image.NRGBA{
		Pix:    b.Pix,
		Stride: int(b.Width) * 4,
		Rect:   image.Rect(0, 0, int(b.Width), int(b.Height)),
	}
}

func (b *Buffer) RowStride() int {
	return int(b.Width) * 4
}

func (b *Buffer) SameSize(other *Buffer) bool {
	return b.Width == other.Width && b.Height == other.Height
}
