// Package pipeline runs one layout check: it acquires the current rendering
// of a page, compares it against the stored reference and reports whether the
// difference stays within the pixel shift tolerance.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"layout-snapshot/internal/buffer"
	"layout-snapshot/internal/capture"
	"layout-snapshot/internal/codec"
	"layout-snapshot/internal/config"
	diffimage "layout-snapshot/internal/diff/image"
	"layout-snapshot/internal/slice"
	"layout-snapshot/internal/storage"
	"layout-snapshot/internal/tolerance"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

type Notifier interface {
	Notify(ctx context.Context, report *Report) error
}

type Pipeline struct {
	Config   config.Config
	Capturer capture.Capturer
	Storage  storage.Storage
	Log      logr.Logger
	// Notifier receives every finished report; nil disables callbacks.
	Notifier Notifier
}

// Run executes the check once. A tolerance failure is not an error: it is
// returned as a report with Passed unset and the diff image persisted.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	cfg := p.Config
	report := &Report{
		TargetURL:   cfg.TargetURL,
		Manual:      cfg.Manual(),
		CaptureOnly: cfg.CaptureOnly,
		StartedAt:   time.Now(),
	}
	log := p.Log.WithValues("target", cfg.TargetURL)

	if err := p.requireInput(ctx, "reference", cfg.ReferencePath); err != nil {
		return nil, err
	}
	if report.Manual {
		if err := p.requireInput(ctx, "current", cfg.CurrentPath); err != nil {
			return nil, err
		}
	}

	reference, referenceURL, err := p.load(ctx, cfg.ReferencePath)
	if err != nil {
		return nil, err
	}
	report.ReferenceURL = referenceURL
	report.Width = reference.Width
	report.Height = reference.Height

	var current *buffer.Buffer
	if report.Manual {
		log.Info("Using existing current image", "path", cfg.CurrentPath)
		current, report.CurrentURL, err = p.load(ctx, cfg.CurrentPath)
		if err != nil {
			return nil, err
		}
	} else {
		current, report.CurrentURL, report.CaptureTimedOut, err = p.capture(ctx, log, reference)
		if err != nil {
			return nil, err
		}
	}

	if cfg.Slice {
		report.ReferenceSlices, report.CurrentSlices, err = p.persistSlices(ctx, reference, current)
		if err != nil {
			return nil, err
		}
		log.Info("Persisted slices", "parts", cfg.SliceCount, "reference", len(report.ReferenceSlices), "current", len(report.CurrentSlices))
	}

	if cfg.CaptureOnly {
		report.Passed = true
		report.FinishedAt = time.Now()
		log.Info("Capture-only run finished, comparison skipped")
		p.notify(ctx, log, report)
		return report, nil
	}

	differ := diffimage.NewPixelDiff(diffimage.Options{
		Threshold: cfg.Threshold,
		IncludeAA: cfg.IncludeAA,
		Alpha:     diffimage.DefaultOptions().Alpha,
	})
	result, err := differ.Calculate(reference, current)
	if err != nil {
		return nil, xerrors.Errorf("failed to compare %s with %s: %w", cfg.ReferencePath, cfg.CurrentPath, err)
	}

	verdict := tolerance.Evaluate(result.DiffPixelCount, reference.Width, cfg.PixelShiftTolerance)
	report.DiffPixelCount = verdict.ActualPixels
	report.DiffAmount = result.DiffAmount
	report.AllowedPixels = verdict.AllowedPixels
	report.Passed = verdict.Passed

	diffData, err := codec.Encode(result.Image)
	if err != nil {
		return nil, xerrors.Errorf("failed to encode diff image: %w", err)
	}
	report.DiffURL, err = p.Storage.Put(ctx, cfg.DiffPath, diffData)
	if err != nil {
		return nil, xerrors.Errorf("failed to store diff image: %w", err)
	}

	if cfg.Slice {
		report.Slices, report.WorstSlice = breakdown(result.RowCounts, uint32(cfg.SliceCount))
	}
	report.FinishedAt = time.Now()

	if report.Passed {
		log.Info("Layout within tolerance", "diffPixels", report.DiffPixelCount, "allowedPixels", report.AllowedPixels, "diff", report.DiffURL)
	} else {
		log.Info("Layout difference exceeds tolerance", "diffPixels", report.DiffPixelCount, "allowedPixels", report.AllowedPixels, "worstSlice", report.WorstSlice, "diff", report.DiffURL)
	}

	p.notify(ctx, log, report)
	return report, nil
}

func (p *Pipeline) requireInput(ctx context.Context, role string, key string) error {
	exists, err := p.Storage.Exists(ctx, key)
	if err != nil {
		return xerrors.Errorf("failed to look up %s image %s: %w", role, key, err)
	}
	if !exists {
		return &MissingInputFileError{Role: role, Path: key}
	}
	return nil
}

func (p *Pipeline) load(ctx context.Context, key string) (*buffer.Buffer, string, error) {
	data, err := p.Storage.Get(ctx, key)
	if err != nil {
		return nil, "", xerrors.Errorf("failed to read %s: %w", key, err)
	}
	img, err := codec.Decode(key, data)
	if err != nil {
		return nil, "", err
	}
	return img, key, nil
}

func (p *Pipeline) capture(ctx context.Context, log logr.Logger, reference *buffer.Buffer) (*buffer.Buffer, string, bool, error) {
	cfg := p.Config
	log.Info("Capturing page", "width", reference.Width, "height", reference.Height, "fullPage", cfg.Capture.FullPage)

	result, err := p.Capturer.Capture(ctx, cfg.TargetURL, capture.CaptureOptions{
		Viewport: capture.Viewport{
			Width:  int(reference.Width),
			Height: int(reference.Height),
		},
		FullPage:               cfg.Capture.FullPage,
		BlockedRequestPatterns: cfg.Capture.BlockedRequestPatterns,
		HideSelectors:          cfg.Capture.HideSelectors,
		DisableAnimations:      cfg.Capture.DisableAnimations,
	})
	if err != nil {
		return nil, "", false, xerrors.Errorf("failed to capture %s: %w", cfg.TargetURL, err)
	}
	if result.TimedOut {
		log.Info("Navigation did not settle in time, using what has loaded", "timeout", cfg.Capture.NavigationTimeout.String())
	}

	url, err := p.Storage.Put(ctx, cfg.CurrentPath, result.Screenshot)
	if err != nil {
		return nil, "", false, xerrors.Errorf("failed to store current image: %w", err)
	}

	current, err := codec.Decode(cfg.CurrentPath, result.Screenshot)
	if err != nil {
		return nil, "", false, err
	}
	return current, url, result.TimedOut, nil
}

func (p *Pipeline) persistSlices(ctx context.Context, reference *buffer.Buffer, current *buffer.Buffer) ([]string, []string, error) {
	parts := uint32(p.Config.SliceCount)

	referenceStrips, err := slice.Slice(reference, parts)
	if err != nil {
		return nil, nil, xerrors.Errorf("failed to slice reference image: %w", err)
	}
	currentStrips, err := slice.Slice(current, parts)
	if err != nil {
		return nil, nil, xerrors.Errorf("failed to slice current image: %w", err)
	}

	referenceURLs := make([]string, len(referenceStrips))
	currentURLs := make([]string, len(currentStrips))

	eg, ctx := errgroup.WithContext(ctx)
	put := func(prefix string, strips []slice.Strip, urls []string) {
		for i, strip := range strips {
			eg.Go(func() error {
				data, err := codec.Encode(strip.Image)
				if err != nil {
					return xerrors.Errorf("failed to encode slice %d: %w", strip.Index, err)
				}
				key := fmt.Sprintf("%s-%d.png", prefix, strip.Index)
				url, err := p.Storage.Put(ctx, key, data)
				if err != nil {
					return xerrors.Errorf("failed to store slice %s: %w", key, err)
				}
				urls[i] = url
				return nil
			})
		}
	}
	put(p.Config.ReferenceSlicePrefix, referenceStrips, referenceURLs)
	put(p.Config.CurrentSlicePrefix, currentStrips, currentURLs)

	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}
	return referenceURLs, currentURLs, nil
}

func (p *Pipeline) notify(ctx context.Context, log logr.Logger, report *Report) {
	if p.Notifier == nil {
		return
	}
	if err := p.Notifier.Notify(ctx, report); err != nil {
		log.Error(err, "Failed to send report callback")
	}
}
