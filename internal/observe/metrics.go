// Package observe provides the OpenTelemetry metrics for the translation
// pipeline.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped from the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name for all pipeline metrics.
const meterName = "github.com/alonsorgl28/teams-translator"

// Metrics holds all OpenTelemetry metric instruments for the pipeline.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// StageDuration tracks per-stage processing latency. Use with
	// attribute.String("stage", ...).
	StageDuration metric.Float64Histogram

	// EndToEndLatency tracks capture-to-subtitle latency of emitted
	// fragments.
	EndToEndLatency metric.Float64Histogram

	// Segments counts units of work leaving a stage. Use with attributes:
	//   attribute.String("stage", ...), attribute.String("outcome", ...)
	Segments metric.Int64Counter

	// QueueDepth tracks the fill level of the stage queues. Use with
	// attribute.String("queue", ...).
	QueueDepth metric.Int64UpDownCounter

	// ActiveSessions tracks whether a capture session is live.
	ActiveSessions metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// a sub-6-second subtitle budget.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.StageDuration, err = m.Float64Histogram("translator.stage.duration",
		metric.WithDescription("Processing latency per pipeline stage."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.EndToEndLatency, err = m.Float64Histogram("translator.subtitle.latency",
		metric.WithDescription("Capture-to-subtitle latency of emitted fragments."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Segments, err = m.Int64Counter("translator.segments",
		metric.WithDescription("Segments leaving each stage by outcome."),
	); err != nil {
		return nil, err
	}
	if met.QueueDepth, err = m.Int64UpDownCounter("translator.queue.depth",
		metric.WithDescription("Fill level of the stage queues."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("translator.active_sessions",
		metric.WithDescription("Number of live capture sessions."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it
// on first call using [otel.GetMeterProvider]. Subsequent calls return the
// same pointer. Panics if instrument creation fails (should not happen with
// the global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordSegment records one unit of work leaving a stage.
func (m *Metrics) RecordSegment(ctx context.Context, stage, outcome string) {
	m.Segments.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("stage", stage),
			attribute.String("outcome", outcome),
		),
	)
}

// RecordStageDuration records the processing latency of one stage call.
func (m *Metrics) RecordStageDuration(ctx context.Context, stage string, d time.Duration) {
	m.StageDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(attribute.String("stage", stage)),
	)
}

// RecordQueueDelta adjusts the depth gauge of a queue.
func (m *Metrics) RecordQueueDelta(ctx context.Context, queue string, delta int64) {
	m.QueueDepth.Add(ctx, delta,
		metric.WithAttributes(attribute.String("queue", queue)),
	)
}
