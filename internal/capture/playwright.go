package capture

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
)

type PlaywrightConfig struct {
	NavigationTimeout time.Duration
	// SettleDelay is waited after navigation and style injection.
	SettleDelay time.Duration

	Headless                  bool
	ChromeDevtoolsProtocolURL string
}

func DefaultPlaywrightConfig() PlaywrightConfig {
	return PlaywrightConfig{
		NavigationTimeout: 30 * time.Second,
		SettleDelay:       800 * time.Millisecond,
		Headless:          true,
	}
}

type playwrightCapturer struct {
	config PlaywrightConfig
}

func NewPlaywrightCapturer(ctx context.Context, p PlaywrightConfig) (Capturer, error) {
	return &playwrightCapturer{
		config: p,
	}, nil
}

func (c *playwrightCapturer) Capture(ctx context.Context, url string, captureOptions CaptureOptions) (*CaptureResult, error) {
	p, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}
	defer p.Stop()

	var browser playwright.Browser

	if c.config.ChromeDevtoolsProtocolURL == "" {
		browser, err = p.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
			Headless: playwright.Bool(c.config.Headless),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}
		defer browser.Close()
	} else {
		browser, err = p.Chromium.ConnectOverCDP(c.config.ChromeDevtoolsProtocolURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to browser via CDP at %s: %w", c.config.ChromeDevtoolsProtocolURL, err)
		}
	}

	browserContext, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  captureOptions.Viewport.Width,
			Height: captureOptions.Viewport.Height,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}
	defer browserContext.Close()

	for _, pattern := range captureOptions.BlockedRequestPatterns {
		if err := browserContext.Route(pattern, func(route playwright.Route) {
			_ = route.Abort()
		}); err != nil {
			return nil, fmt.Errorf("failed to block requests matching %s: %w", pattern, err)
		}
	}

	page, err := browserContext.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create new page: %w", err)
	}
	defer page.Close()

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			page.Close()
		case <-done:
		}
	}()
	defer close(done)

	timedOut := false
	if _, err := page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   playwright.Float(float64(c.config.NavigationTimeout.Milliseconds())),
	}); err != nil {
		// a page that never reaches network idle is still worth a screenshot
		if !errors.Is(err, playwright.ErrTimeout) || page.IsClosed() {
			return nil, fmt.Errorf("failed to navigate to %s: %w", url, err)
		}
		timedOut = true
	}

	if css := hideStyle(captureOptions); css != "" {
		if _, err := page.AddStyleTag(playwright.PageAddStyleTagOptions{
			Content: playwright.String(css),
		}); err != nil {
			return nil, fmt.Errorf("failed to inject style: %w", err)
		}
	}

	if c.config.SettleDelay > 0 {
		select {
		case <-time.After(c.config.SettleDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	screenshotBytes, err := page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(captureOptions.FullPage),
		Type:     playwright.ScreenshotTypePng,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to take screenshot: %w", err)
	}

	return &CaptureResult{
		Screenshot: screenshotBytes,
		TimedOut:   timedOut,
	}, nil
}

func hideStyle(options CaptureOptions) string {
	var css strings.Builder

	if len(options.HideSelectors) > 0 {
		css.WriteString(strings.Join(options.HideSelectors, ",\n"))
		css.WriteString(` {
  display: none !important;
  visibility: hidden !important;
  opacity: 0 !important;
}
`)
	}

	if options.DisableAnimations {
		css.WriteString(`* {
  animation: none !important;
  transition: none !important;
}
`)
	}

	return css.String()
}
