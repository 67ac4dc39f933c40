package store

import (
	"context"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/notebook/internal/errs"
	"github.com/roach88/notebook/internal/record"
)

const namespace = "notebook"

// Metrics holds the collectors shared by instrumented backends.
type Metrics struct {
	recorded *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		recorded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "experiments_recorded_total",
				Help:      "Total number of experiment records persisted",
			},
			[]string{"backend", "outcome"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "record_failures_total",
				Help:      "Total number of failed record writes",
			},
			[]string{"backend", "kind"}, // kind: serialization, storage, ...
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "record_duration_seconds",
				Help:      "Histogram of record write duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"backend"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.recorded, m.failures, m.duration)
	}
	return m
}

// Instrumented wraps a Backend and reports every write to Metrics.
// It lists and closes through the wrapped backend when it supports that.
type Instrumented struct {
	next    Backend
	backend string
	metrics *Metrics
}

// Instrument wraps next. name labels the series, e.g. "sqlite".
func Instrument(next Backend, name string, m *Metrics) *Instrumented {
	return &Instrumented{next: next, backend: name, metrics: m}
}

// Unwrap returns the wrapped backend.
func (i *Instrumented) Unwrap() Backend {
	return i.next
}

// RecordExperiment forwards to the wrapped backend and records the result.
func (i *Instrumented) RecordExperiment(ctx context.Context, exp record.Experiment) error {
	start := time.Now()
	err := i.next.RecordExperiment(ctx, exp)
	i.metrics.duration.WithLabelValues(i.backend).Observe(time.Since(start).Seconds())

	if err != nil {
		kind := strings.ToLower(string(errs.KindOf(err)))
		if kind == "" {
			kind = "unknown"
		}
		i.metrics.failures.WithLabelValues(i.backend, kind).Inc()
		return err
	}
	i.metrics.recorded.WithLabelValues(i.backend, string(exp.Outcome)).Inc()
	return nil
}

// ListAllExperiments forwards to the wrapped backend.
func (i *Instrumented) ListAllExperiments(ctx context.Context) ([]record.Experiment, error) {
	l, ok := i.next.(Lister)
	if !ok {
		return nil, errs.New(errs.Usage, "list experiments", "backend %T cannot list records", i.next)
	}
	return l.ListAllExperiments(ctx)
}

// Close closes the wrapped backend.
func (i *Instrumented) Close() error {
	return Close(i.next)
}
