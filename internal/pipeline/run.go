package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/v0xg/pagepipe/internal/driver"
	"github.com/v0xg/pagepipe/internal/fault"
	"github.com/v0xg/pagepipe/internal/flow"
)

// Options configures a run
type Options struct {
	Verbose bool
	Out     io.Writer // progress lines, stdout when nil
}

// Report describes a finished run.
type Report struct {
	RunID    string
	Script   string
	Started  time.Time
	Duration time.Duration
	Steps    int // top-level steps that completed
	Total    int
	Outputs  flow.Values
	Err      error
}

// OK reports whether every step succeeded.
func (r Report) OK() bool {
	return r.Err == nil
}

func mark(ok bool) string {
	if ok {
		return color.New(color.FgGreen).Sprint("✓")
	}
	return color.New(color.FgRed).Sprint("✗")
}

// Run executes the script's steps in order against page and stops at the
// first failure. It never panics; compile and step errors end up in the
// report.
func Run(ctx context.Context, page driver.Page, s *Script, opts Options) Report {
	report := Report{
		RunID:   uuid.NewString(),
		Script:  s.Name,
		Started: time.Now(),
		Total:   len(s.Steps),
		Outputs: flow.Values{},
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	log := flow.Logger(ctx).WithFields(logrus.Fields{
		"run_id": report.RunID,
		"script": s.Name,
	})
	ctx = flow.WithLogger(ctx, log)

	steps, err := newCompiler(s).steps("steps", s.Steps)
	if err != nil {
		report.Err = fault.Wrap(err, fault.KindInvalid, s.Name, "compile script")
		report.Duration = time.Since(report.Started)
		return report
	}

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	log.WithField("steps", len(steps)).Info("run started")
	for i, step := range steps {
		if opts.Verbose {
			fmt.Fprintf(out, "  [%d/%d] %s", i+1, len(steps), describe(s.Steps[i]))
		}

		v, err := step.Run(ctx, page).Get()
		if err != nil {
			if opts.Verbose {
				fmt.Fprintf(out, " %s (%v)\n", mark(false), err)
			}
			report.Err = err
			break
		}
		if opts.Verbose {
			fmt.Fprintf(out, " %s\n", mark(true))
		}
		report.Outputs.Merge(v)
		report.Steps++
	}
	report.Duration = time.Since(report.Started)

	entry := log.WithFields(logrus.Fields{
		"completed": report.Steps,
		"duration":  report.Duration,
	})
	if report.Err != nil {
		msg, fields := fault.Format(report.Err)
		entry.WithFields(fields).Errorf("run failed: %s", msg)
	} else {
		entry.Info("run finished")
	}
	return report
}

// describe renders a step for progress output.
func describe(st Step) string {
	parts := []string{st.Action}
	if st.Name != "" {
		parts = append(parts, fmt.Sprintf("%q", st.Name))
	}
	switch {
	case st.URL != "":
		parts = append(parts, st.URL)
	case len(st.Selector) > 0:
		parts = append(parts, strings.Join(st.Selector, " | "))
	case st.Path != "":
		parts = append(parts, st.Path)
	}
	return strings.Join(parts, " ")
}

type reportFile struct {
	RunID    string      `yaml:"run_id"`
	Script   string      `yaml:"script"`
	Started  time.Time   `yaml:"started"`
	Duration string      `yaml:"duration"`
	Steps    string      `yaml:"steps"`
	OK       bool        `yaml:"ok"`
	Error    string      `yaml:"error,omitempty"`
	Outputs  flow.Values `yaml:"outputs"`
}

// WriteYAML writes the report, outputs included, as YAML.
func (r Report) WriteYAML(w io.Writer) error {
	rf := reportFile{
		RunID:    r.RunID,
		Script:   r.Script,
		Started:  r.Started,
		Duration: r.Duration.Round(time.Millisecond).String(),
		Steps:    fmt.Sprintf("%d/%d", r.Steps, r.Total),
		OK:       r.OK(),
		Outputs:  r.Outputs,
	}
	if r.Err != nil {
		rf.Error = r.Err.Error()
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(rf); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return enc.Close()
}

// Save writes the report to path, creating parent directories.
func (r Report) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()
	return r.WriteYAML(f)
}
