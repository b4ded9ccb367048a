// Package metrics records action outcomes and latencies with Prometheus.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/v0xg/pagepipe/internal/fault"
	"github.com/v0xg/pagepipe/internal/flow"
)

// Recorder is a flow.Observer backed by its own registry, so runs in the
// same process never share counters.
type Recorder struct {
	registry *prometheus.Registry
	actions  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var _ flow.Observer = (*Recorder)(nil)

func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		actions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pagepipe",
				Name:      "actions_total",
				Help:      "Total number of instrumented action runs",
			},
			[]string{"action", "outcome"}, // step action type; "ok" or the fault kind
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "pagepipe",
				Name:      "action_duration_seconds",
				Help:      "Action run time in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
			},
			[]string{"action"},
		),
	}
}

// Observe implements flow.Observer. action should be an action type such as
// "click", never a name carrying selectors or URLs.
func (r *Recorder) Observe(action string, elapsed time.Duration, err error) {
	r.actions.WithLabelValues(action, Outcome(err)).Inc()
	r.duration.WithLabelValues(action).Observe(elapsed.Seconds())
}

// Registry exposes the recorder's registry, e.g. for promhttp.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile writes every metric in the text exposition format, for the
// node exporter's textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}

// Outcome labels err: "ok", its fault kind, or "error".
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if kind := fault.KindOf(err); kind != "" {
		return string(kind)
	}
	return "error"
}
