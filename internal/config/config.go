// Package config holds the settings of a layout check. Values are layered:
// built-in defaults, then an optional YAML file, then environment variables,
// then command line flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ManualTarget as TargetURL skips live capture and uses CurrentPath as is.
const ManualTarget = "manual"

type Config struct {
	// TargetURL is the page to capture, or ManualTarget.
	TargetURL string `yaml:"targetURL"`

	ReferencePath        string `yaml:"referencePath"`
	CurrentPath          string `yaml:"currentPath"`
	DiffPath             string `yaml:"diffPath"`
	ReferenceSlicePrefix string `yaml:"referenceSlicePrefix"`
	CurrentSlicePrefix   string `yaml:"currentSlicePrefix"`

	Slice      bool `yaml:"slice"`
	SliceCount uint `yaml:"sliceCount"`

	// Threshold is the per-pixel color distance sensitivity (0.0 to 1.0).
	Threshold float64 `yaml:"threshold"`
	IncludeAA bool    `yaml:"includeAA"`
	// PixelShiftTolerance is the horizontal shift in pixels allowed on every row.
	PixelShiftTolerance float64 `yaml:"pixelShiftTolerance"`

	// CaptureOnly skips the diff and the tolerance check.
	CaptureOnly bool `yaml:"captureOnly"`

	Capture CaptureConfig `yaml:"capture"`

	StorageBackend string `yaml:"storageBackend"`
	Directory      string `yaml:"directory"`
	S3Bucket       string `yaml:"s3Bucket"`
	S3Prefix       string `yaml:"s3Prefix"`

	CallbackURL string `yaml:"callbackURL"`
	Schedule    string `yaml:"schedule"`
}

type CaptureConfig struct {
	FullPage                  bool          `yaml:"fullPage"`
	NavigationTimeout         time.Duration `yaml:"navigationTimeout"`
	SettleDelay               time.Duration `yaml:"settleDelay"`
	BlockedRequestPatterns    []string      `yaml:"blockedRequestPatterns"`
	HideSelectors             []string      `yaml:"hideSelectors"`
	DisableAnimations         bool          `yaml:"disableAnimations"`
	Headless                  bool          `yaml:"headless"`
	ChromeDevtoolsProtocolURL string        `yaml:"chromeDevtoolsProtocolURL"`
}

func DefaultConfig() Config {
	return Config{
		TargetURL:            "https://www.travelinventive.nl/",
		ReferencePath:        "reference/home-reference.png",
		CurrentPath:          "reference/home-current.png",
		DiffPath:             "reference/home-diff.png",
		ReferenceSlicePrefix: "reference/reference_slice",
		CurrentSlicePrefix:   "reference/current_slice",
		Slice:                true,
		SliceCount:           10,
		Threshold:            0.1,
		IncludeAA:            false,
		PixelShiftTolerance:  12,
		CaptureOnly:          false,
		Capture: CaptureConfig{
			FullPage:          false,
			NavigationTimeout: 30 * time.Second,
			SettleDelay:       800 * time.Millisecond,
			BlockedRequestPatterns: []string{
				"**://cdn.cookiecode.nl/**",
			},
			HideSelectors: []string{
				".cookie-banner",
				".cookiebar",
				".cc_banner",
				".cc-window",
				`[id*="cookie"]`,
				`[class*="cookie"]`,
				"video",
				"iframe",
			},
			DisableAnimations: true,
			Headless:          true,
		},
		StorageBackend: "file",
		Directory:      ".",
	}
}

func (c Config) Manual() bool {
	return c.TargetURL == ManualTarget
}

// Load reads a YAML file over the defaults. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("error parsing config file %s: %w", path, err)
	}

	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.TargetURL == "" {
		errs = append(errs, errors.New("target URL must be set (use \"manual\" to skip capture)"))
	}
	if c.ReferencePath == "" || c.CurrentPath == "" {
		errs = append(errs, errors.New("reference and current paths must be set"))
	}
	if c.Slice && c.SliceCount < 1 {
		errs = append(errs, fmt.Errorf("slice count must be a positive integer, got %d", c.SliceCount))
	}
	if c.SliceCount > 1<<32-1 {
		errs = append(errs, fmt.Errorf("slice count %d is too large", c.SliceCount))
	}
	if err := ValidateThreshold(c.Threshold); err != nil {
		errs = append(errs, err)
	}
	if err := ValidatePixelShiftTolerance(c.PixelShiftTolerance); err != nil {
		errs = append(errs, err)
	}
	switch c.StorageBackend {
	case "file":
	case "s3":
		if c.S3Bucket == "" {
			errs = append(errs, errors.New("s3 storage backend requires a bucket"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend: %s", c.StorageBackend))
	}
	return errors.Join(errs...)
}

// ValidateThreshold rejects thresholds outside [0, 1], NaN included.
func ValidateThreshold(threshold float64) error {
	if !(threshold >= 0 && threshold <= 1) {
		return fmt.Errorf("diff threshold must be between 0.0 and 1.0, got %v", threshold)
	}
	return nil
}

func ValidatePixelShiftTolerance(shift float64) error {
	if math.IsNaN(shift) || math.IsInf(shift, 0) || shift < 0 {
		return fmt.Errorf("pixel shift tolerance must be a finite non-negative number, got %v", shift)
	}
	return nil
}

type stringList []string

func (s *stringList) String() string {
	return strings.Join(*s, ",")
}

func (s *stringList) Set(value string) error {
	*s = splitList(value)
	return nil
}

func splitList(value string) []string {
	list := []string{}
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}

// BindFlags registers a flag for every setting. Flag defaults are the current
// values of c unless the matching environment variable is set.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.TargetURL, "target-url", EnvOrDefaultValue("TARGET_URL", c.TargetURL), `URL to capture, or "manual" to use the existing current image`)
	fs.StringVar(&c.ReferencePath, "reference", EnvOrDefaultValue("REFERENCE_PATH", c.ReferencePath), "Reference image key")
	fs.StringVar(&c.CurrentPath, "current", EnvOrDefaultValue("CURRENT_PATH", c.CurrentPath), "Current image key")
	fs.StringVar(&c.DiffPath, "diff", EnvOrDefaultValue("DIFF_PATH", c.DiffPath), "Diff image key")
	fs.StringVar(&c.ReferenceSlicePrefix, "reference-slice-prefix", EnvOrDefaultValue("REFERENCE_SLICE_PREFIX", c.ReferenceSlicePrefix), "Key prefix of reference slices")
	fs.StringVar(&c.CurrentSlicePrefix, "current-slice-prefix", EnvOrDefaultValue("CURRENT_SLICE_PREFIX", c.CurrentSlicePrefix), "Key prefix of current slices")
	fs.BoolVar(&c.Slice, "slice", EnvOrDefaultValue("SLICE", c.Slice), "Slice reference and current images")
	fs.UintVar(&c.SliceCount, "slice-count", EnvOrDefaultValue("SLICE_COUNT", c.SliceCount), "Number of horizontal slices")
	fs.Float64Var(&c.Threshold, "threshold", EnvOrDefaultValue("DIFF_THRESHOLD", c.Threshold), "Per-pixel color distance threshold (0.0 to 1.0)")
	fs.BoolVar(&c.IncludeAA, "include-aa", EnvOrDefaultValue("INCLUDE_AA", c.IncludeAA), "Count anti-aliased pixels as differences")
	fs.Float64Var(&c.PixelShiftTolerance, "pixel-shift-tolerance", EnvOrDefaultValue("PIXEL_SHIFT_TOLERANCE", c.PixelShiftTolerance), "Allowed horizontal shift in pixels per row")
	fs.BoolVar(&c.CaptureOnly, "capture-only", EnvOrDefaultValue("CAPTURE_ONLY", c.CaptureOnly), "Only capture (and slice), skip the comparison")

	fs.BoolVar(&c.Capture.FullPage, "full-page", EnvOrDefaultValue("FULL_PAGE", c.Capture.FullPage), "Capture the full scrollable page instead of the viewport")
	fs.DurationVar(&c.Capture.NavigationTimeout, "navigation-timeout", EnvOrDefaultValue("NAVIGATION_TIMEOUT", c.Capture.NavigationTimeout), "Navigation timeout")
	fs.DurationVar(&c.Capture.SettleDelay, "settle-delay", EnvOrDefaultValue("SETTLE_DELAY", c.Capture.SettleDelay), "Delay before capturing")
	fs.BoolVar(&c.Capture.DisableAnimations, "disable-animations", EnvOrDefaultValue("DISABLE_ANIMATIONS", c.Capture.DisableAnimations), "Disable CSS animations and transitions")
	fs.BoolVar(&c.Capture.Headless, "headless", EnvOrDefaultValue("HEADLESS", c.Capture.Headless), "Run the browser headless")
	fs.StringVar(&c.Capture.ChromeDevtoolsProtocolURL, "chrome-devtools-protocol-url", EnvOrDefaultValue("CHROME_DEVTOOLS_PROTOCOL_URL", c.Capture.ChromeDevtoolsProtocolURL), "Connect to existing browser via Chrome DevTools Protocol URL (e.g., http://localhost:9222)")

	blocked := (*stringList)(&c.Capture.BlockedRequestPatterns)
	if v, ok := os.LookupEnv("BLOCKED_REQUEST_PATTERNS"); ok {
		_ = blocked.Set(v)
	}
	fs.Var(blocked, "blocked-request-patterns", "Comma-separated URL globs to abort during capture")

	hidden := (*stringList)(&c.Capture.HideSelectors)
	if v, ok := os.LookupEnv("HIDE_SELECTORS"); ok {
		_ = hidden.Set(v)
	}
	fs.Var(hidden, "hide-selectors", "Comma-separated CSS selectors to hide during capture")

	fs.StringVar(&c.StorageBackend, "storage-backend", EnvOrDefaultValue("STORAGE_BACKEND", c.StorageBackend), "Storage backend (file or s3)")
	fs.StringVar(&c.Directory, "directory", EnvOrDefaultValue("DIRECTORY", c.Directory), "Base directory of the file storage backend")
	fs.StringVar(&c.S3Bucket, "s3-bucket", EnvOrDefaultValue("S3_BUCKET", c.S3Bucket), "Bucket of the s3 storage backend")
	fs.StringVar(&c.S3Prefix, "s3-prefix", EnvOrDefaultValue("S3_PREFIX", c.S3Prefix), "Key prefix of the s3 storage backend")

	fs.StringVar(&c.CallbackURL, "callback-url", EnvOrDefaultValue("CALLBACK_URL", c.CallbackURL), "Callback URL to send reports to")
	fs.StringVar(&c.Schedule, "schedule", EnvOrDefaultValue("SCHEDULE", c.Schedule), "Cron schedule to rerun the check on (empty runs once)")
}

// PathFromArgs finds the value of -config/--config in args before flags are
// parsed, so the file can seed the flag defaults.
func PathFromArgs(args []string, fallback string) string {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			break
		}
		name := strings.TrimLeft(arg, "-")
		if name == arg {
			continue
		}
		if value, ok := strings.CutPrefix(name, "config="); ok {
			return value
		}
		if name == "config" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return fallback
}
