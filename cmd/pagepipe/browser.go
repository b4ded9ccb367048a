package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/v0xg/pagepipe/internal/config"
	"github.com/v0xg/pagepipe/internal/driver"
	"github.com/v0xg/pagepipe/internal/driver/htmlpage"
	"github.com/v0xg/pagepipe/internal/driver/pwpage"
	"github.com/v0xg/pagepipe/internal/driver/rodpage"
)

// openDriver starts the configured backend. The returned func releases it.
func openDriver(ctx context.Context, c *config.Config) (driver.Page, func() error, error) {
	switch c.Driver {
	case config.DriverRod:
		b, err := rodpage.Launch(ctx, rodpage.Options{
			Width:      c.Width,
			Height:     c.Height,
			Headless:   c.Headless,
			Timeout:    c.Timeout,
			ProfileDir: c.Profile,
		})
		if err != nil {
			return nil, nil, err
		}
		return b.Page(), b.Close, nil

	case config.DriverPlaywright:
		b, err := pwpage.Launch(pwpage.Options{
			Width:      c.Width,
			Height:     c.Height,
			Headless:   c.Headless,
			Timeout:    c.Timeout,
			ProfileDir: c.Profile,
			Install:    c.Install,
		})
		if err != nil {
			return nil, nil, err
		}
		return b.Page(), b.Close, nil

	case config.DriverHTML:
		return htmlpage.New(&http.Client{Timeout: c.Timeout}), func() error { return nil }, nil
	}
	return nil, nil, fmt.Errorf("unknown driver %q", c.Driver)
}

// inspect navigates to url and lists the page's interactive elements.
func inspect(ctx context.Context, page driver.Page, url string) (*driver.Inventory, error) {
	in, ok := page.(driver.Inspector)
	if !ok {
		return nil, fmt.Errorf("driver %q cannot inspect pages", cfg.Driver)
	}
	if err := page.Navigate(ctx, url); err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", url, err)
	}
	return in.Inspect(ctx)
}
