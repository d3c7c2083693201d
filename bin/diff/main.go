package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"os"

	"layout-snapshot/internal/buffer"
	"layout-snapshot/internal/codec"
	"layout-snapshot/internal/config"
	diffimage "layout-snapshot/internal/diff/image"
	"layout-snapshot/internal/storage"
	"layout-snapshot/internal/tolerance"
)

type DiffOutput struct {
	DiffPath       string  `json:"diffPath"`
	DiffPixelCount uint64  `json:"diffPixelCount"`
	DiffAmount     float64 `json:"diffAmount"`
	AllowedPixels  uint64  `json:"allowedPixels"`
	Passed         bool    `json:"passed"`
}

func main() {
	defaults := config.DefaultConfig()

	var directory string
	var diffKey string
	var threshold float64
	var includeAA bool
	var shiftTolerance float64
	flag.StringVar(&directory, "directory", config.EnvOrDefaultValue("DIRECTORY", "."), "Output directory")
	flag.StringVar(&diffKey, "diff", config.EnvOrDefaultValue("DIFF_PATH", defaults.DiffPath), "Diff image path, relative to the output directory")
	flag.Float64Var(&threshold, "threshold", config.EnvOrDefaultValue("DIFF_THRESHOLD", defaults.Threshold), "Per-pixel color distance threshold (0.0 to 1.0)")
	flag.BoolVar(&includeAA, "include-aa", config.EnvOrDefaultValue("INCLUDE_AA", defaults.IncludeAA), "Count anti-aliased pixels as differences")
	flag.Float64Var(&shiftTolerance, "pixel-shift-tolerance", config.EnvOrDefaultValue("PIXEL_SHIFT_TOLERANCE", defaults.PixelShiftTolerance), "Allowed horizontal shift in pixels per row")

	flag.Parse()

	if err := errors.Join(config.ValidateThreshold(threshold), config.ValidatePixelShiftTolerance(shiftTolerance)); err != nil {
		log.Fatalf("Invalid options: %v", err)
	}

	args := flag.Args()
	if len(args) < 2 {
		log.Fatalf("reference, current not specified")
	}

	ctx := context.Background()
	s, err := storage.NewFileStorage(ctx, storage.FileConfig{
		Directory: directory,
	})
	if err != nil {
		log.Fatalf("Failed to create storage backend: %v", err)
	}

	referencePath := args[0]
	currentPath := args[1]

	reference, err := loadScreenshot(referencePath)
	if err != nil {
		log.Fatalf("Failed to load reference image: %v", err)
	}

	current, err := loadScreenshot(currentPath)
	if err != nil {
		log.Fatalf("Failed to load current image: %v", err)
	}

	diffResult, err := diffimage.NewPixelDiff(diffimage.Options{
		Threshold: threshold,
		IncludeAA: includeAA,
		Alpha:     diffimage.DefaultOptions().Alpha,
	}).Calculate(reference, current)
	if err != nil {
		log.Fatalf("Failed to compare images: %v", err)
	}

	data, err := codec.Encode(diffResult.Image)
	if err != nil {
		log.Fatalf("Failed to encode diff image: %v", err)
	}

	diffPath, err := s.Put(ctx, diffKey, data)
	if err != nil {
		log.Fatalf("Failed to save diff image: %v", err)
	}

	verdict := tolerance.Evaluate(diffResult.DiffPixelCount, reference.Width, shiftTolerance)

	if err := json.NewEncoder(os.Stdout).Encode(DiffOutput{
		DiffPath:       diffPath,
		DiffPixelCount: verdict.ActualPixels,
		DiffAmount:     diffResult.DiffAmount,
		AllowedPixels:  verdict.AllowedPixels,
		Passed:         verdict.Passed,
	}); err != nil {
		log.Fatalf("Failed to encode result: %v", err)
	}

	if !verdict.Passed {
		os.Exit(1)
	}
}

func loadScreenshot(path string) (*buffer.Buffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return codec.Decode(path, data)
}
