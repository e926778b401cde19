package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/chromedp"
)

// Defaults fit the desktop grid page.
const (
	DefaultWidth   = 1280
	DefaultHeight  = 900
	DefaultTimeout = 30 * time.Second
)

// ReadySelector is set by the grid page once every card is positioned.
const ReadySelector = `[data-ready="true"]`

// ErrNoURL is returned when Options.URL is empty.
var ErrNoURL = errors.New("capture: URL is required")

// Options for a headless screenshot of the grid page.
type Options struct {
	// URL of the page to capture, e.g. "http://127.0.0.1:8080/grid?date=2025-03-29".
	URL string

	// Width and Height set the viewport. The screenshot covers the full
	// page regardless of Height.
	Width  int
	Height int

	Timeout time.Duration

	// ExecPath selects a Chromium binary; empty lets chromedp search PATH.
	ExecPath string
}

func (o *Options) normalize() error {
	if o.URL == "" {
		return ErrNoURL
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return nil
}

// GridPNG loads the grid page in headless Chromium, waits for the page's
// ready marker and returns a full-page PNG.
func GridPNG(parentCtx context.Context, opts Options) ([]byte, error) {
	if err := opts.normalize(); err != nil {
		return nil, err
	}

	allocOpts := chromedp.DefaultExecAllocatorOptions[:]
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(parentCtx, allocOpts...)
	defer allocCancel()

	ctx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(ReadySelector, chromedp.ByQuery),
		// Let web fonts finish painting.
		chromedp.Sleep(300 * time.Millisecond),
		chromedp.FullScreenshot(&png, 100),
	}
	if err := chromedp.Run(ctx, tasks); err != nil {
		return nil, fmt.Errorf("capture: chromedp run failed: %w", err)
	}
	return png, nil
}

// GridPNGToFile is GridPNG followed by a write to path.
func GridPNGToFile(ctx context.Context, opts Options, path string) error {
	png, err := GridPNG(ctx, opts)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return fmt.Errorf("capture: failed to write PNG: %w", err)
	}
	return nil
}
