package config_test

import (
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"layout-snapshot/internal/config"

	"github.com/google/go-cmp/cmp"
)

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	got, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(config.DefaultConfig(), got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "layout-snapshot.yaml")
	data := `
targetURL: manual
sliceCount: 4
pixelShiftTolerance: 0
capture:
  navigationTimeout: 5s
  hideSelectors:
    - .banner
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := config.Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := config.DefaultConfig()
	want.TargetURL = config.ManualTarget
	want.SliceCount = 4
	want.PixelShiftTolerance = 0
	want.Capture.NavigationTimeout = 5 * time.Second
	want.Capture.HideSelectors = []string{".banner"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if !got.Manual() {
		t.Errorf("expected manual mode")
	}
}

func TestLoad_Malformed(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "layout-snapshot.yaml")
	if err := os.WriteFile(path, []byte("sliceCount: [1"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := config.Load(path); err == nil {
		t.Errorf("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr bool
	}{
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			func(c *config.Config) {},
			false,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			func(c *config.Config) { c.SliceCount = 0 },
			true,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			func(c *config.Config) { c.SliceCount = 0; c.Slice = false },
			false,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			func(c *config.Config) { c.Threshold = 1.5 },
			true,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			func(c *config.Config) { c.PixelShiftTolerance = -1 },
			true,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			func(c *config.Config) { c.Threshold = math.NaN() },
			true,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			func(c *config.Config) { c.Threshold = 0 },
			false,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			func(c *config.Config) { c.PixelShiftTolerance = math.NaN() },
			true,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			func(c *config.Config) { c.PixelShiftTolerance = math.Inf(1) },
			true,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			func(c *config.Config) { c.StorageBackend = "s3" },
			true,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			func(c *config.Config) { c.StorageBackend = "s3"; c.S3Bucket = "layouts" },
			false,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			func(c *config.Config) { c.StorageBackend = "gcs" },
			true,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			func(c *config.Config) { c.TargetURL = "" },
			true,
		},
	}
	for _, tt := range tests {
		name := tt.name
		mutate := tt.mutate
		wantErr := tt.wantErr
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			c := config.DefaultConfig()
			mutate(&c)
			err := c.Validate()
			if diff := cmp.Diff(wantErr, err != nil); diff != "" {
				t.Errorf("err = %v (-want +got):\n%s", err, diff)
			}
		})
	}
}

func TestBindFlags(t *testing.T) {
	t.Setenv("SLICE_COUNT", "7")
	t.Setenv("PIXEL_SHIFT_TOLERANCE", "not-a-number")
	t.Setenv("HIDE_SELECTORS", ".a, .b")

	c := config.DefaultConfig()
	fs := flag.NewFlagSet("layout-snapshot", flag.ContinueOnError)
	c.BindFlags(fs)

	if err := fs.Parse([]string{"-threshold", "0.2", "-target-url", "manual", "-settle-delay", "1s"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := config.DefaultConfig()
	want.SliceCount = 7
	want.Threshold = 0.2
	want.TargetURL = config.ManualTarget
	want.Capture.SettleDelay = time.Second
	want.Capture.HideSelectors = []string{".a", ".b"}
	if diff := cmp.Diff(want, c); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestPathFromArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"Absent", []string{"-slice-count", "3"}, "layout-snapshot.yaml"},
		{"Separate", []string{"-config", "ci.yaml"}, "ci.yaml"},
		{"Equals", []string{"--config=ci.yaml", "-slice=false"}, "ci.yaml"},
		{"AfterTerminator", []string{"--", "-config", "ci.yaml"}, "layout-snapshot.yaml"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := config.PathFromArgs(tt.args, "layout-snapshot.yaml")
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}
