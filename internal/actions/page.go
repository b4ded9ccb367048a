package actions

import (
	"context"
	"fmt"
	"time"

	"github.com/v0xg/pagepipe/internal/capture"
	"github.com/v0xg/pagepipe/internal/driver"
	"github.com/v0xg/pagepipe/internal/fault"
	"github.com/v0xg/pagepipe/internal/flow"
	"github.com/v0xg/pagepipe/internal/result"
	"github.com/v0xg/pagepipe/internal/selector"
)

// Navigate loads url in the page.
func Navigate(url string) flow.Action[struct{}] {
	name := "navigate " + url
	return flow.Func(name, func(ctx context.Context, page driver.Page) (struct{}, error) {
		if err := page.Navigate(ctx, url); err != nil {
			return struct{}{}, classify(ctx, name, err)
		}
		return struct{}{}, nil
	})
}

// CurrentURL returns the URL of the page.
func CurrentURL() flow.Action[string] {
	return flow.Func("url", func(ctx context.Context, page driver.Page) (string, error) {
		u, err := page.URL(ctx)
		if err != nil {
			return "", classify(ctx, "url", err)
		}
		return u, nil
	})
}

// WaitFor waits up to timeout for s to match.
func WaitFor(s selector.Selector, timeout time.Duration) flow.Action[driver.Element] {
	name := "wait_for " + s.String()
	return flow.New(name, func(ctx context.Context, page driver.Page) result.Result[driver.Element] {
		el, err := page.WaitFor(ctx, s, timeout)
		if err != nil {
			return result.Err[driver.Element](notFound(ctx, name, s, err))
		}
		return result.Ok(el)
	})
}

// Pause waits for d, or until ctx is done.
func Pause(d time.Duration) flow.Action[struct{}] {
	name := fmt.Sprintf("pause %s", d)
	return flow.New(name, func(ctx context.Context, _ driver.Page) result.Result[struct{}] {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return result.Err[struct{}](fault.FromContext(name, ctx.Err()))
		case <-t.C:
			return result.Ok(struct{}{})
		}
	})
}

// Screenshot captures the viewport to path and returns the file size.
func Screenshot(path string, opts capture.Options) flow.Action[int64] {
	name := "screenshot " + path
	return flow.Func(name, func(ctx context.Context, page driver.Page) (int64, error) {
		data, err := page.Screenshot(ctx)
		if err != nil {
			return 0, classify(ctx, name, err)
		}
		return capture.Save(data, path, opts)
	})
}
