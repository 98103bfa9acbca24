// Package capture takes a PNG screenshot of the rendered /calendar page with a
// headless Chromium.
package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"

	"weekcal/internal/config"
	appLog "weekcal/internal/log"
)

const (
	DefaultWidth   = 1304
	DefaultHeight  = 984
	DefaultTimeout = 30 * time.Second
)

// readySelector is set by the calendar page once it has rendered.
const readySelector = `[data-ready="true"]`

// Options defines one capture.
type Options struct {
	// URL to capture, e.g. "http://127.0.0.1:8080/calendar".
	URL string
	// Output is the PNG path. Written atomically.
	Output string

	Width  int
	Height int

	// Timeout bounds the whole capture including browser start.
	Timeout time.Duration
}

// OptionsFrom builds Options from the capture section of the config.
func OptionsFrom(c config.CaptureConfig) Options {
	return Options{
		URL:    c.URL,
		Output: c.Output,
		Width:  c.Width,
		Height: c.Height,
	}
}

func (o Options) withDefaults() (Options, error) {
	if o.URL == "" {
		return o, errors.New("capture: URL is required")
	}
	if o.Output == "" {
		return o, errors.New("capture: output path is required")
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
	return o, nil
}

// CalendarPNG starts a headless browser, loads opts.URL at the configured
// viewport, waits for the page's ready marker and writes a screenshot to
// opts.Output.
func CalendarPNG(parent context.Context, opts Options) error {
	opts, err := opts.withDefaults()
	if err != nil {
		return err
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.WindowSize(opts.Width, opts.Height),
		chromedp.DisableGPU,
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parent, allocOpts...)
	defer cancelAlloc()

	ctx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	ctx, cancelTimeout := context.WithTimeout(ctx, opts.Timeout)
	defer cancelTimeout()

	var png []byte
	start := time.Now()
	err = chromedp.Run(ctx,
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(readySelector, chromedp.ByQuery),
		chromedp.CaptureScreenshot(&png),
	)
	if err != nil {
		return fmt.Errorf("capture: chromedp run: %w", err)
	}

	if err := writeFileAtomic(opts.Output, png); err != nil {
		return fmt.Errorf("capture: write %s: %w", opts.Output, err)
	}
	appLog.Info("capture done", "output", opts.Output, "bytes", len(png), "took", time.Since(start).String())
	return nil
}

// writeFileAtomic writes data next to path and renames it into place so
// /preview.png never serves a half-written file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".capture-*.png")
	if err != nil {
		return err
	}
	name := tmp.Name()
	defer os.Remove(name)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(name, 0o644); err != nil {
		return err
	}
	return os.Rename(name, path)
}
