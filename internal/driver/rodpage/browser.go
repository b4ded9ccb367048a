// Package rodpage is the go-rod driver: a real Chromium controlled over the
// DevTools protocol.
package rodpage

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/v0xg/pagepipe/internal/driver"
)

// Options configures the browser
type Options struct {
	Width      int
	Height     int
	Headless   bool
	Timeout    time.Duration // default bound for waits when the caller sets none
	ProfileDir string        // Chrome/Chromium profile directory for authenticated sessions
	Bin        string        // browser binary, looked up when empty
}

// Browser owns a launched browser and its single page
type Browser struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *Page
}

// Launch starts a browser with one blank page.
func Launch(ctx context.Context, opts Options) (*Browser, error) {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Width == 0 {
		opts.Width = 1280
	}
	if opts.Height == 0 {
		opts.Height = 720
	}

	bin := opts.Bin
	if bin == "" {
		bin, _ = launcher.LookPath()
	}
	l := launcher.New().Context(ctx).Headless(opts.Headless)
	if bin != "" {
		l = l.Bin(bin)
	}
	if opts.ProfileDir != "" {
		l = l.UserDataDir(opts.ProfileDir)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = browser.Close()
		l.Kill()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             opts.Width,
		Height:            opts.Height,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		_ = browser.Close()
		l.Kill()
		return nil, fmt.Errorf("failed to set viewport: %w", err)
	}

	return &Browser{
		launcher: l,
		browser:  browser,
		page:     &Page{page: page, timeout: opts.Timeout},
	}, nil
}

// Page returns the browser's page
func (b *Browser) Page() *Page {
	return b.page
}

// Close cleans up browser resources
func (b *Browser) Close() error {
	var err error
	if b.page != nil {
		_ = b.page.page.Close()
	}
	if b.browser != nil {
		err = b.browser.Close()
	}
	if b.launcher != nil {
		b.launcher.Kill()
		b.launcher.Cleanup()
	}
	return err
}

// Inspect lists the interactive elements of the current page once it has
// settled.
func (p *Page) Inspect(ctx context.Context) (*driver.Inventory, error) {
	page := p.page.Context(ctx)

	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("failed to wait for load: %w", err)
	}
	// Bounded so persistent connections (WebSockets, polling) don't hang us
	page.Timeout(5*time.Second).WaitRequestIdle(500*time.Millisecond, nil, nil, nil)()
	waitForInteractiveElements(ctx, page, 5*time.Second)

	obj, err := page.Eval(driver.InventoryScript)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect page: %w", err)
	}
	var inv driver.Inventory
	if err := obj.Value.Unmarshal(&inv); err != nil {
		return nil, fmt.Errorf("failed to decode inventory: %w", err)
	}
	return &inv, nil
}

// waitForInteractiveElements polls until something interactive is visible,
// giving SPAs time to hydrate.
func waitForInteractiveElements(ctx context.Context, page *rod.Page, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	checkInterval := 200 * time.Millisecond

	for time.Now().Before(deadline) {
		obj, err := page.Eval(`() => {
			const nodes = document.querySelectorAll('button, [role="button"], input:not([type="hidden"]), textarea, select, a[href]');
			let visible = 0;
			nodes.forEach(el => { if (el.offsetParent) visible++; });
			return visible;
		}`)
		if err != nil {
			return
		}
		if obj.Value.Int() > 0 {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(checkInterval):
		}
	}
}
