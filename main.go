package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"layout-snapshot/internal/capture"
	"layout-snapshot/internal/config"
	"layout-snapshot/internal/pipeline"
	"layout-snapshot/internal/runnable"
	"layout-snapshot/internal/storage"

	"github.com/go-logr/logr"
	"github.com/joho/godotenv"
	"github.com/playwright-community/playwright-go"
	"github.com/robfig/cron/v3"
)

const (
	exitPassed = 0
	exitFailed = 1
	exitError  = 2
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("failed to load .env: %v", err)
	}

	configPath := config.PathFromArgs(os.Args[1:], config.EnvOrDefaultValue("CONFIG", "layout-snapshot.yaml"))
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	flag.String("config", configPath, "Optional YAML configuration file")
	cfg.BindFlags(flag.CommandLine)
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(exitError)
	}

	slogger, err := runnable.NewLogger()
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	logger := logr.FromSlogHandler(slogger.Handler()).WithName("layout-snapshot")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := newStorage(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to create %s storage backend: %v", cfg.StorageBackend, err)
	}

	var capturer capture.Capturer
	if !cfg.Manual() {
		capturer, err = newCapturer(ctx, cfg)
		if err != nil {
			log.Fatalf("failed to initialize capturer: %v", err)
		}
	}

	p := &pipeline.Pipeline{
		Config:   cfg,
		Capturer: capturer,
		Storage:  s,
		Log:      logger,
	}
	if cfg.CallbackURL != "" {
		p.Notifier = pipeline.NewHTTPNotifier(cfg.CallbackURL)
	}

	if cfg.Schedule == "" {
		code := run(ctx, p)
		stop()
		os.Exit(code)
	}

	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(cfg.Schedule, func() {
		run(ctx, p)
	}); err != nil {
		fmt.Fprintf(os.Stderr, "invalid schedule %q: %v\n", cfg.Schedule, err)
		os.Exit(exitError)
	}

	logger.Info("Scheduled layout check", "schedule", cfg.Schedule)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
}

// run executes one check, prints its report to stdout and returns the exit
// status for it.
func run(ctx context.Context, p *pipeline.Pipeline) int {
	report, err := p.Run(ctx)
	if err != nil {
		if pipeline.Anticipated(err) {
			fmt.Fprintf(os.Stderr, "layout check failed: %v\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "layout check failed: %+v\n", err)
		}
		return exitError
	}

	j, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal report: %+v\n", err)
		return exitError
	}
	fmt.Println(string(j))

	if !report.Passed {
		return exitFailed
	}
	return exitPassed
}

func newStorage(ctx context.Context, cfg config.Config) (storage.Storage, error) {
	switch cfg.StorageBackend {
	case "s3":
		return storage.NewS3Storage(ctx, storage.S3Config{
			Bucket: cfg.S3Bucket,
			Prefix: cfg.S3Prefix,
		})
	default:
		return storage.NewFileStorage(ctx, storage.FileConfig{
			Directory: cfg.Directory,
		})
	}
}

func newCapturer(ctx context.Context, cfg config.Config) (capture.Capturer, error) {
	if cfg.Capture.ChromeDevtoolsProtocolURL == "" {
		if err := playwright.Install(&playwright.RunOptions{
			Browsers: []string{"chromium"},
		}); err != nil {
			return nil, fmt.Errorf("failed to install playwright browsers: %w", err)
		}
	}

	return capture.NewPlaywrightCapturer(ctx, capture.PlaywrightConfig{
		NavigationTimeout:         cfg.Capture.NavigationTimeout,
		SettleDelay:               cfg.Capture.SettleDelay,
		Headless:                  cfg.Capture.Headless,
		ChromeDevtoolsProtocolURL: cfg.Capture.ChromeDevtoolsProtocolURL,
	})
}
