package main

import (
	"context"
	"errors"
	"log"

	"layout-snapshot/internal/config"
	"layout-snapshot/internal/runnable"
	"layout-snapshot/internal/storage"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(config.EnvOrDefaultValue("CONFIG", "layout-snapshot.yaml"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cfg.Threshold = config.EnvOrDefaultValue("DIFF_THRESHOLD", cfg.Threshold)
	cfg.IncludeAA = config.EnvOrDefaultValue("INCLUDE_AA", cfg.IncludeAA)
	cfg.PixelShiftTolerance = config.EnvOrDefaultValue("PIXEL_SHIFT_TOLERANCE", cfg.PixelShiftTolerance)
	cfg.SliceCount = config.EnvOrDefaultValue("SLICE_COUNT", cfg.SliceCount)
	if err := errors.Join(config.ValidateThreshold(cfg.Threshold), config.ValidatePixelShiftTolerance(cfg.PixelShiftTolerance)); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	var s storage.Storage
	switch config.EnvOrDefaultValue("STORAGE_BACKEND", cfg.StorageBackend) {
	case "s3":
		s, err = storage.NewS3Storage(ctx, storage.S3Config{
			Bucket: config.EnvOrDefaultValue("S3_BUCKET", cfg.S3Bucket),
			Prefix: config.EnvOrDefaultValue("S3_PREFIX", cfg.S3Prefix),
		})
	default:
		s, err = storage.NewFileStorage(ctx, storage.FileConfig{
			Directory: config.EnvOrDefaultValue("DIRECTORY", cfg.Directory),
		})
	}
	if err != nil {
		log.Fatalf("Failed to create storage backend: %v", err)
	}

	server := runnable.NewServer(s, cfg)
	if err := server.Start(ctx); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
