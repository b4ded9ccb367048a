package flow

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

type ctxKey int

const (
	loggerKey ctxKey = iota
	observerKey
)

var discardLogger = func() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}()

// Observer receives one report per instrumented action run.
type Observer interface {
	Observe(action string, elapsed time.Duration, err error)
}

// WithLogger attaches the logger actions in ctx report to.
func WithLogger(ctx context.Context, l logrus.FieldLogger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// Logger returns the logger attached to ctx, or one that discards everything.
func Logger(ctx context.Context) logrus.FieldLogger {
	if l, ok := ctx.Value(loggerKey).(logrus.FieldLogger); ok && l != nil {
		return l
	}
	return discardLogger
}

// WithObserver attaches an observer for instrumented actions.
func WithObserver(ctx context.Context, o Observer) context.Context {
	return context.WithValue(ctx, observerKey, o)
}

func observerFrom(ctx context.Context) Observer {
	o, _ := ctx.Value(observerKey).(Observer)
	return o
}
