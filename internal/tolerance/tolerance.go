package tolerance

import "math"

type Verdict struct {
	AllowedPixels uint64
	ActualPixels  uint64
	Passed        bool
}

// AllowedPixels returns round(imageWidth * shiftTolerance). The budget models
// every scan row shifting horizontally by up to shiftTolerance pixels, so it
// scales with width rather than area.
func AllowedPixels(imageWidth uint32, shiftTolerance float64) uint64 {
	if shiftTolerance <= 0 || math.IsNaN(shiftTolerance) {
		return 0
	}
	return uint64(math.Round(float64(imageWidth) * shiftTolerance))
}

// Evaluate passes when diffPixelCount does not exceed the allowed budget.
func Evaluate(diffPixelCount uint64, imageWidth uint32, shiftTolerance float64) Verdict {
	allowed := AllowedPixels(imageWidth, shiftTolerance)
	return Verdict{
		AllowedPixels: allowed,
		ActualPixels:  diffPixelCount,
		Passed:        diffPixelCount <= allowed,
	}
}
