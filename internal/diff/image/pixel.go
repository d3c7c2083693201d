package image

import (
	"bytes"
	"runtime"
	"sync"
	"sync/atomic"

	"layout-snapshot/internal/buffer"
)

// maxYIQDelta is the largest possible YIQ distance between two colors.
const maxYIQDelta = 35215

type Options struct {
	// Threshold is the matching sensitivity from 0.0 to 1.0; smaller is stricter.
	Threshold float64
	// IncludeAA counts anti-aliased pixels as differences instead of skipping them.
	IncludeAA bool
	// Alpha is the opacity of the unchanged pixels drawn into the diff image.
	Alpha float64
}

func DefaultOptions() Options {
	return Options{
		Threshold: 0.1,
		IncludeAA: false,
		Alpha:     0.1,
	}
}

var (
	diffColor = [3]uint8{255, 0, 0}
	aaColor   = [3]uint8{255, 255, 0}
)

type PixelDiff struct {
	options  Options
	maxDelta float64
}

func NewPixelDiff(options Options) *PixelDiff {
	return &PixelDiff{
		options:  options,
		maxDelta: maxYIQDelta * options.Threshold * options.Threshold,
	}
}

func (p *PixelDiff) Calculate(baseline *buffer.Buffer, target *buffer.Buffer) (*DiffResult, error) {
	if !baseline.SameSize(target) {
		return nil, &DimensionMismatchError{
			BaselineWidth:  baseline.Width,
			BaselineHeight: baseline.Height,
			TargetWidth:    target.Width,
			TargetHeight:   target.Height,
		}
	}

	diff := buffer.New(baseline.Width, baseline.Height)
	rowCounts := make([]uint32, baseline.Height)
	width := int(baseline.Width)
	height := int(baseline.Height)

	identical := bytes.Equal(baseline.Pix, target.Pix)

	// Use GOMAXPROCS instead of runtime.NumCPU() to consider cgroup.
	// https://tip.golang.org/doc/go1.25#container-aware-gomaxprocs
	numWorkers := runtime.GOMAXPROCS(0)
	rowsPerWorker := height / numWorkers

	var diffPixelCount uint64
	var wg sync.WaitGroup
	wg.Add(numWorkers)

	for i := 0; i < numWorkers; i++ {
		startY := i * rowsPerWorker
		endY := startY + rowsPerWorker
		if i == numWorkers-1 {
			endY = height
		}

		go func(startY int, endY int) {
			defer wg.Done()
			if identical {
				p.processIdentical(baseline, diff, startY, endY)
				return
			}
			p.processRows(baseline, target, diff, rowCounts, width, height, startY, endY, &diffPixelCount)
		}(startY, endY)
	}

	wg.Wait()

	diffAmount := 0.0
	if total := width * height; total > 0 {
		diffAmount = float64(diffPixelCount) / float64(total)
	}

	return &DiffResult{
		Image:          diff,
		DiffPixelCount: diffPixelCount,
		DiffAmount:     diffAmount,
		RowCounts:      rowCounts,
	}, nil
}

func (p *PixelDiff) processIdentical(baseline *buffer.Buffer, diff *buffer.Buffer, startY int, endY int) {
	stride := baseline.RowStride()
	for pos := startY * stride; pos < endY*stride; pos += 4 {
		p.drawGrayPixel(baseline.Pix, diff.Pix, pos)
	}
}

func (p *PixelDiff) processRows(baseline *buffer.Buffer, target *buffer.Buffer, diff *buffer.Buffer, rowCounts []uint32, width int, height int, startY int, endY int, diffPixelCount *uint64) {
	var localCount uint64

	for y := startY; y < endY; y++ {
		var rowCount uint32
		for x := 0; x < width; x++ {
			pos := (y*width + x) * 4

			delta := colorDelta(baseline.Pix, target.Pix, pos, pos, false)
			if delta < 0 {
				delta = -delta
			}

			if delta <= p.maxDelta {
				p.drawGrayPixel(baseline.Pix, diff.Pix, pos)
				continue
			}

			if !p.options.IncludeAA && (antialiased(baseline.Pix, target.Pix, x, y, width, height) ||
				antialiased(target.Pix, baseline.Pix, x, y, width, height)) {
				drawPixel(diff.Pix, pos, aaColor)
				continue
			}

			drawPixel(diff.Pix, pos, diffColor)
			rowCount++
		}
		rowCounts[y] = rowCount
		localCount += uint64(rowCount)
	}

	atomic.AddUint64(diffPixelCount, localCount)
}

func (p *PixelDiff) drawGrayPixel(src []byte, dst []byte, pos int) {
	r, g, b, a := float64(src[pos]), float64(src[pos+1]), float64(src[pos+2]), float64(src[pos+3])
	v := clamp(blend(rgb2y(r, g, b), p.options.Alpha*a/255))
	drawPixel(dst, pos, [3]uint8{v, v, v})
}

func drawPixel(dst []byte, pos int, c [3]uint8) {
	dst[pos] = c[0]
	dst[pos+1] = c[1]
	dst[pos+2] = c[2]
	dst[pos+3] = 255
}

// antialiased reports whether the pixel at (x1, y1) of img looks like an
// anti-aliased edge: its darkest and brightest neighbours sit in flat regions
// of both images.
func antialiased(img []byte, other []byte, x1 int, y1 int, width int, height int) bool {
	x0 := max(x1-1, 0)
	y0 := max(y1-1, 0)
	x2 := min(x1+1, width-1)
	y2 := min(y1+1, height-1)
	pos := (y1*width + x1) * 4

	zeroes := 0
	if x1 == x0 || x1 == x2 || y1 == y0 || y1 == y2 {
		zeroes = 1
	}

	var minDelta, maxDelta float64
	var minX, minY, maxX, maxY int

	for x := x0; x <= x2; x++ {
		for y := y0; y <= y2; y++ {
			if x == x1 && y == y1 {
				continue
			}

			delta := colorDelta(img, img, pos, (y*width+x)*4, true)
			if delta == 0 {
				zeroes++
				if zeroes > 2 {
					return false
				}
			} else if delta < minDelta {
				minDelta = delta
				minX, minY = x, y
			} else if delta > maxDelta {
				maxDelta = delta
				maxX, maxY = x, y
			}
		}
	}

	if minDelta == 0 || maxDelta == 0 {
		return false
	}

	return (hasManySiblings(img, minX, minY, width, height) && hasManySiblings(other, minX, minY, width, height)) ||
		(hasManySiblings(img, maxX, maxY, width, height) && hasManySiblings(other, maxX, maxY, width, height))
}

// hasManySiblings reports whether more than two neighbours share the exact
// color of the pixel at (x1, y1).
func hasManySiblings(img []byte, x1 int, y1 int, width int, height int) bool {
	x0 := max(x1-1, 0)
	y0 := max(y1-1, 0)
	x2 := min(x1+1, width-1)
	y2 := min(y1+1, height-1)
	pos := (y1*width + x1) * 4

	zeroes := 0
	if x1 == x0 || x1 == x2 || y1 == y0 || y1 == y2 {
		zeroes = 1
	}

	for x := x0; x <= x2; x++ {
		for y := y0; y <= y2; y++ {
			if x == x1 && y == y1 {
				continue
			}

			pos2 := (y*width + x) * 4
			if img[pos] == img[pos2] && img[pos+1] == img[pos2+1] && img[pos+2] == img[pos2+2] && img[pos+3] == img[pos2+3] {
				zeroes++
			}
			if zeroes > 2 {
				return true
			}
		}
	}

	return false
}

// colorDelta returns the squared YIQ distance between the pixels at k in a and
// m in b, negative when the first pixel is brighter. With yOnly it returns the
// signed luma difference instead.
func colorDelta(a []byte, b []byte, k int, m int, yOnly bool) float64 {
	if a[k] == b[m] && a[k+1] == b[m+1] && a[k+2] == b[m+2] && a[k+3] == b[m+3] {
		return 0
	}

	r1, g1, b1 := blendOnWhite(a[k], a[k+1], a[k+2], a[k+3])
	r2, g2, b2 := blendOnWhite(b[m], b[m+1], b[m+2], b[m+3])

	y1 := rgb2y(r1, g1, b1)
	y2 := rgb2y(r2, g2, b2)
	y := y1 - y2

	if yOnly {
		return y
	}

	i := rgb2i(r1, g1, b1) - rgb2i(r2, g2, b2)
	q := rgb2q(r1, g1, b1) - rgb2q(r2, g2, b2)

	delta := 0.5053*y*y + 0.299*i*i + 0.1957*q*q
	if y1 > y2 {
		return -delta
	}
	return delta
}

func blendOnWhite(r uint8, g uint8, b uint8, a uint8) (float64, float64, float64) {
	if a == 255 {
		return float64(r), float64(g), float64(b)
	}
	alpha := float64(a) / 255
	return blend(float64(r), alpha), blend(float64(g), alpha), blend(float64(b), alpha)
}

func blend(c float64, a float64) float64 {
	return 255 + (c-255)*a
}

func rgb2y(r float64, g float64, b float64) float64 {
	return r*0.29889531 + g*0.58662247 + b*0.11448223
}

func rgb2i(r float64, g float64, b float64) float64 {
	return r*0.59597799 - g*0.27417610 - b*0.32180189
}

func rgb2q(r float64, g float64, b float64) float64 {
	return r*0.21147017 - g*0.52261711 + b*0.31114694
}

func clamp(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}
