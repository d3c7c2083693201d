package capture

import (
	"context"
)

type Viewport struct {
	Width  int
	Height int
}

type CaptureOptions struct {
	Viewport Viewport
	FullPage bool
	// BlockedRequestPatterns are URL globs whose requests are aborted, e.g. "**://cdn.cookiecode.nl/**".
	BlockedRequestPatterns []string
	// HideSelectors are CSS selectors forced invisible before the screenshot.
	HideSelectors []string
	// DisableAnimations stops CSS animations and transitions.
	DisableAnimations bool
}

type CaptureResult struct {
	// Screenshot is PNG encoded.
	Screenshot []byte
	// TimedOut is set when navigation did not settle in time and the
	// screenshot shows whatever had loaded by then.
	TimedOut bool
}

type Capturer interface {
	Capture(ctx context.Context, url string, options CaptureOptions) (*CaptureResult, error)
}
