package pipeline

import (
	"time"

	"layout-snapshot/internal/slice"

	"gonum.org/v1/gonum/floats"
)

type SliceReport struct {
	Index          uint32 `json:"index"`
	YStart         uint32 `json:"yStart"`
	YEnd           uint32 `json:"yEnd"`
	DiffPixelCount uint64 `json:"diffPixelCount"`
	// Share is this slice's part of all differing pixels.
	Share float64 `json:"share"`
}

type Report struct {
	TargetURL       string `json:"targetURL"`
	Manual          bool   `json:"manual"`
	CaptureOnly     bool   `json:"captureOnly"`
	CaptureTimedOut bool   `json:"captureTimedOut"`

	Width  uint32 `json:"width"`
	Height uint32 `json:"height"`

	ReferenceURL    string   `json:"referenceURL"`
	CurrentURL      string   `json:"currentURL"`
	ReferenceSlices []string `json:"referenceSlices,omitempty"`
	CurrentSlices   []string `json:"currentSlices,omitempty"`
	DiffURL         string   `json:"diffURL,omitempty"`

	DiffPixelCount uint64  `json:"diffPixelCount"`
	DiffAmount     float64 `json:"diffAmount"`
	AllowedPixels  uint64  `json:"allowedPixels"`
	Passed         bool    `json:"passed"`

	Slices []SliceReport `json:"slices,omitempty"`
	// WorstSlice is the 1-based index of the slice with most differing pixels,
	// 0 when nothing differs.
	WorstSlice uint32 `json:"worstSlice,omitempty"`

	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

// breakdown folds per-row difference counts into the same strips the slicer
// produces for an image of len(rowCounts) rows.
func breakdown(rowCounts []uint32, parts uint32) ([]SliceReport, uint32) {
	height := uint32(len(rowCounts))
	if parts == 0 || height == 0 {
		return nil, 0
	}

	stripHeight := slice.StripHeight(height, parts)
	counts := make([]float64, 0, parts)
	reports := make([]SliceReport, 0, parts)
	for i := uint32(0); i < parts; i++ {
		yStart := uint64(i) * uint64(stripHeight)
		yEnd := min(yStart+uint64(stripHeight), uint64(height))
		if yEnd <= yStart {
			continue
		}

		var count uint64
		for _, c := range rowCounts[yStart:yEnd] {
			count += uint64(c)
		}
		counts = append(counts, float64(count))
		reports = append(reports, SliceReport{
			Index:          i + 1,
			YStart:         uint32(yStart),
			YEnd:           uint32(yEnd),
			DiffPixelCount: count,
		})
	}

	total := floats.Sum(counts)
	if total == 0 {
		return reports, 0
	}

	shares := make([]float64, len(counts))
	floats.ScaleTo(shares, 1/total, counts)
	for i := range reports {
		reports[i].Share = shares[i]
	}

	return reports, reports[floats.MaxIdx(counts)].Index
}
