// Package pwpage is the Playwright driver. Playwright calls take millisecond
// timeouts rather than contexts, so every call derives its bound from the
// caller's deadline.
package pwpage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/v0xg/pagepipe/internal/driver"
)

// Options configures the browser
type Options struct {
	Width      int
	Height     int
	Headless   bool
	Timeout    time.Duration // default bound for calls when the caller sets none
	ProfileDir string        // persistent profile, reused between runs
	Install    bool          // download the driver and Chromium first
}

// Browser owns the Playwright process, a Chromium instance and one page.
type Browser struct {
	pw      *playwright.Playwright
	browser playwright.Browser // nil for persistent profiles
	context playwright.BrowserContext
	page    *Page
}

// Launch starts Playwright and opens a blank page.
func Launch(opts Options) (*Browser, error) {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Width == 0 {
		opts.Width = 1280
	}
	if opts.Height == 0 {
		opts.Height = 720
	}

	runOpts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}
	if opts.Install {
		if err := playwright.Install(runOpts); err != nil {
			return nil, fmt.Errorf("failed to install playwright: %w", err)
		}
	}
	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	b := &Browser{pw: pw}
	viewport := &playwright.Size{Width: opts.Width, Height: opts.Height}

	if opts.ProfileDir != "" {
		b.context, err = pw.Chromium.LaunchPersistentContext(opts.ProfileDir, playwright.BrowserTypeLaunchPersistentContextOptions{
			Headless: playwright.Bool(opts.Headless),
			Viewport: viewport,
		})
		if err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}
	} else {
		b.browser, err = pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
			Headless: playwright.Bool(opts.Headless),
		})
		if err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}
		b.context, err = b.browser.NewContext(playwright.BrowserNewContextOptions{
			Viewport: viewport,
		})
		if err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("failed to create context: %w", err)
		}
	}

	page, err := b.context.NewPage()
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	page.SetDefaultTimeout(millis(opts.Timeout))

	b.page = &Page{page: page, timeout: opts.Timeout}
	return b, nil
}

// Page returns the browser's page
func (b *Browser) Page() *Page {
	return b.page
}

// Close releases the page, the browser and the Playwright driver.
func (b *Browser) Close() error {
	if b.page != nil {
		_ = b.page.page.Close()
	}
	if b.context != nil {
		_ = b.context.Close()
	}
	if b.browser != nil {
		_ = b.browser.Close()
	}
	if b.pw != nil {
		return b.pw.Stop()
	}
	return nil
}

// Inspect lists the interactive elements of the current page.
func (p *Page) Inspect(ctx context.Context) (*driver.Inventory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// Persistent connections can keep the network busy forever, so the wait
	// is best effort.
	_ = p.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateNetworkidle,
		Timeout: playwright.Float(millis(p.remaining(ctx, 5*time.Second))),
	})

	raw, err := p.page.Evaluate(driver.InventoryScript)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect page: %w", err)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode inventory: %w", err)
	}
	var inv driver.Inventory
	if err := json.Unmarshal(data, &inv); err != nil {
		return nil, fmt.Errorf("failed to decode inventory: %w", err)
	}
	return &inv, nil
}

func millis(d time.Duration) float64 {
	return float64(d / time.Millisecond)
}
