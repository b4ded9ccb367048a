// Package logging builds the CLI's logrus logger.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New creates a logger writing to stderr at level. verbose, or DEBUG=true in
// the environment, forces debug.
func New(level string, verbose bool) (*logrus.Logger, error) {
	return NewWithOutput(os.Stderr, level, verbose)
}

// NewWithOutput is New with an explicit destination.
func NewWithOutput(out io.Writer, level string, verbose bool) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetFormatter(&logrus.TextFormatter{
		TimestampFormat: "2006/01/02 15:04:05",
		FullTimestamp:   true,
		DisableSorting:  true,
	})

	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if verbose || os.Getenv("DEBUG") == "true" {
		lvl = logrus.DebugLevel
	}
	logger.SetLevel(lvl)
	return logger, nil
}
