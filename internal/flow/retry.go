package flow

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/v0xg/pagepipe/internal/driver"
	"github.com/v0xg/pagepipe/internal/fault"
	"github.com/v0xg/pagepipe/internal/result"
)

// DefaultMaxDelay caps the pause between retries once backoff has grown it.
const DefaultMaxDelay = time.Minute

type retryConfig struct {
	backoff  float64
	maxDelay time.Duration
	retryIf  func(error) bool
}

// RetryOption tunes Retry.
type RetryOption func(*retryConfig)

// Backoff multiplies the delay by mult after every failed attempt. Values
// below 1 are ignored.
func Backoff(mult float64) RetryOption {
	return func(c *retryConfig) {
		if mult >= 1 {
			c.backoff = mult
		}
	}
}

// MaxDelay caps the pause between attempts. A delay passed to Retry that is
// already longer is kept as is.
func MaxDelay(d time.Duration) RetryOption {
	return func(c *retryConfig) {
		if d > 0 {
			c.maxDelay = d
		}
	}
}

// RetryIf limits retrying to failures for which pred returns true. Other
// failures are returned immediately.
func RetryIf(pred func(error) bool) RetryOption {
	return func(c *retryConfig) { c.retryIf = pred }
}

// Retry runs a up to maxAttempts times and returns the first success, or the
// last failure unchanged. It sleeps delay between attempts, grown by Backoff
// up to MaxDelay; the sleep ends early when ctx is done, in which case the last failure is returned.
// maxAttempts below 1 yields an action that fails with an Invalid fault.
func (a Action[T]) Retry(maxAttempts int, delay time.Duration, opts ...RetryOption) Action[T] {
	if maxAttempts < 1 {
		return Fail[T](a.name, fault.Newf(fault.KindInvalid, a.name, "retry needs at least one attempt, got %d", maxAttempts))
	}
	cfg := retryConfig{backoff: 1, maxDelay: DefaultMaxDelay}
	for _, opt := range opts {
		opt(&cfg)
	}

	return New(a.name, func(ctx context.Context, page driver.Page) result.Result[T] {
		delays := newBackoff(delay, cfg)
		for attempt := 1; ; attempt++ {
			r := a.Run(ctx, page)
			if r.IsOk() || attempt == maxAttempts || ctx.Err() != nil {
				return r
			}
			if cfg.retryIf != nil && !cfg.retryIf(r.Err()) {
				return r
			}

			wait := delays.NextBackOff()
			Logger(ctx).WithField("action", a.name).
				WithField("attempt", attempt).
				WithField("delay", wait).
				Debugf("retrying: %v", r.Err())

			if wait > 0 {
				t := time.NewTimer(wait)
				select {
				case <-ctx.Done():
					t.Stop()
					return r
				case <-t.C:
				}
			}
		}
	}).Describe(a.description)
}

// newBackoff yields delay, then delay grown by the multiplier on every call,
// saturating at the configured ceiling.
func newBackoff(delay time.Duration, cfg retryConfig) *backoff.ExponentialBackOff {
	return backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(delay),
		backoff.WithMultiplier(cfg.backoff),
		backoff.WithRandomizationFactor(0),
		backoff.WithMaxInterval(max(delay, cfg.maxDelay)),
		backoff.WithMaxElapsedTime(0),
	)
}
