// Package capture prints rendered HTML reports to PDF with headless Chromium.
package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

const (
	// US Letter, in inches.
	DefaultPaperWidth  = 8.5
	DefaultPaperHeight = 11.0
	DefaultTimeoutSec  = 30
)

// PDFOptions defines parameters for a Chromium-based PDF print.
type PDFOptions struct {
	// HTMLPath is the local HTML file to print.
	HTMLPath string

	// OutputPath is where the PDF will be written.
	OutputPath string

	// Landscape prints the page rotated.
	Landscape bool

	// Timeout bounds the entire print. If zero, DefaultTimeoutSec is used.
	Timeout time.Duration

	// ExecAllocator options, e.g. chromedp.ExecPath. Empty uses the chromedp
	// defaults (headless, first Chrome found on PATH).
	AllocatorOptions []chromedp.ExecAllocatorOption
}

// PrintPDF launches headless Chromium, opens the HTML file and writes the
// printed PDF to opts.OutputPath.
func PrintPDF(parentCtx context.Context, opts PDFOptions) error {
	if opts.HTMLPath == "" {
		return fmt.Errorf("capture: HTMLPath is required")
	}
	if opts.OutputPath == "" {
		return fmt.Errorf("capture: OutputPath is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Duration(DefaultTimeoutSec) * time.Second
	}

	abs, err := filepath.Abs(opts.HTMLPath)
	if err != nil {
		return fmt.Errorf("capture: resolve %s: %w", opts.HTMLPath, err)
	}

	allocCtx := parentCtx
	if len(opts.AllocatorOptions) > 0 {
		allocOpts := append(chromedp.DefaultExecAllocatorOptions[:], opts.AllocatorOptions...)
		var cancelAlloc context.CancelFunc
		allocCtx, cancelAlloc = chromedp.NewExecAllocator(parentCtx, allocOpts...)
		defer cancelAlloc()
	}

	ctx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var pdf []byte
	tasks := chromedp.Tasks{
		chromedp.Navigate("file://" + filepath.ToSlash(abs)),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithLandscape(opts.Landscape).
				WithPaperWidth(DefaultPaperWidth).
				WithPaperHeight(DefaultPaperHeight).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = buf
			return nil
		}),
	}

	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	if err := os.WriteFile(opts.OutputPath, pdf, 0o644); err != nil {
		return fmt.Errorf("capture: failed to write PDF: %w", err)
	}
	return nil
}
