// Package observe provides OpenTelemetry metric instruments for the speech
// pipeline and the Prometheus-backed provider the CLI exposes on /metrics.
//
// [Metrics] satisfies both speech.FrameObserver and model.InferenceRecorder,
// so a single instance can be handed to the pipeline and to the model
// loaders.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/chriscow/speechstack-go"

// Metrics holds every instrument recorded by the pipeline.
type Metrics struct {
	// InferenceDuration tracks model latency in seconds, keyed by model.
	InferenceDuration metric.Float64Histogram

	// Activations counts rising activation edges, keyed by source.
	Activations metric.Int64Counter

	// Frames counts frames dispatched through the pipeline.
	Frames metric.Int64Counter

	// StageErrors counts stage failures, keyed by stage.
	StageErrors metric.Int64Counter
}

// Inference runs once per 10 or 20 ms frame, so buckets stop at a second.
var latencyBuckets = []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.02, 0.05, 0.1, 0.25, 1}

// NewMetrics creates all instruments from mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	met := &Metrics{}
	var err error

	if met.InferenceDuration, err = m.Float64Histogram("speechstack.inference.duration",
		metric.WithDescription("Model inference latency by model name."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Activations, err = m.Int64Counter("speechstack.activations",
		metric.WithDescription("Total activations by triggering source."),
	); err != nil {
		return nil, err
	}
	if met.Frames, err = m.Int64Counter("speechstack.frames",
		metric.WithDescription("Total audio frames processed."),
	); err != nil {
		return nil, err
	}
	if met.StageErrors, err = m.Int64Counter("speechstack.stage.errors",
		metric.WithDescription("Total stage failures by stage."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] created from
// [otel.GetMeterProvider] on first use.
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

// RecordInference records one model call.
func (m *Metrics) RecordInference(ctx context.Context, model string, d time.Duration) {
	m.InferenceDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(attribute.String("model", model)),
	)
}

// RecordFrame counts one processed frame.
func (m *Metrics) RecordFrame(ctx context.Context) {
	m.Frames.Add(ctx, 1)
}

// RecordStageError counts one stage failure.
func (m *Metrics) RecordStageError(ctx context.Context, stage string) {
	m.StageErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("stage", stage)),
	)
}

// RecordActivation counts one activation edge raised by source.
func (m *Metrics) RecordActivation(ctx context.Context, source string) {
	m.Activations.Add(ctx, 1,
		metric.WithAttributes(attribute.String("source", source)),
	)
}
