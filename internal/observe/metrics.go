// Package observe provides application-wide observability primitives for
// Lexara: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Lexara metrics.
const meterName = "github.com/larkhollow/lexara"

// Metrics holds all OpenTelemetry metric instruments for the decoder.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Per-frame latency ---

	// FrameDecodeDuration tracks the wall-clock time spent in a single
	// Decoder.Step call.
	FrameDecodeDuration metric.Float64Histogram

	// --- Evaluation counters ---

	// HMMEvaluations counts senone-set evaluations requested of the
	// acoustic model via ActivateHMM, labeled by utterance phase.
	HMMEvaluations metric.Int64Counter

	// SenoneEvaluations counts individual senone scores computed by
	// CompAllSen, i.e. n_sen_eval from the reference decoder.
	SenoneEvaluations metric.Int64Counter

	// WordExits counts word-exit history entries committed per frame.
	WordExits metric.Int64Counter

	// --- Error counters ---

	// AcousticErrors counts failures returned by the acoustic model
	// collaborator, labeled by operation.
	AcousticErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveHMMs tracks the number of HMM instances active in the
	// current frame's propagation set.
	ActiveHMMs metric.Int64UpDownCounter

	// ActiveUtterances tracks the number of utterances currently being
	// decoded (normally 0 or 1 per Decoder, but tracked per-process).
	ActiveUtterances metric.Int64UpDownCounter

	// BeamFactor reports the controller's current adaptive narrowing
	// factor (1.0 at the start of an utterance, shrinking toward the
	// configured floor as n_hmm_active exceeds maxhmmpf).
	BeamFactor metric.Float64Gauge

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// frameLatencyBuckets defines histogram bucket boundaries (in seconds)
// sized for per-frame decode latency, which should stay well under a
// single 10ms frame period to keep up with real-time audio.
var frameLatencyBuckets = []float64{
	0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.FrameDecodeDuration, err = m.Float64Histogram("lexara.frame.decode.duration",
		metric.WithDescription("Wall-clock time spent decoding a single frame."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(frameLatencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.HMMEvaluations, err = m.Int64Counter("lexara.hmm.evaluations",
		metric.WithDescription("Total HMM activations requested of the acoustic model."),
	); err != nil {
		return nil, err
	}
	if met.SenoneEvaluations, err = m.Int64Counter("lexara.senone.evaluations",
		metric.WithDescription("Total senone scores computed across all frames."),
	); err != nil {
		return nil, err
	}
	if met.WordExits, err = m.Int64Counter("lexara.word.exits",
		metric.WithDescription("Total word-exit history entries committed."),
	); err != nil {
		return nil, err
	}

	if met.AcousticErrors, err = m.Int64Counter("lexara.acoustic.errors",
		metric.WithDescription("Total errors returned by the acoustic model collaborator, by operation."),
	); err != nil {
		return nil, err
	}

	if met.ActiveHMMs, err = m.Int64UpDownCounter("lexara.active_hmms",
		metric.WithDescription("Number of HMM instances active in the current frame."),
	); err != nil {
		return nil, err
	}
	if met.ActiveUtterances, err = m.Int64UpDownCounter("lexara.active_utterances",
		metric.WithDescription("Number of utterances currently being decoded."),
	); err != nil {
		return nil, err
	}
	if met.BeamFactor, err = m.Float64Gauge("lexara.beam_factor",
		metric.WithDescription("Current adaptive beam-narrowing factor."),
	); err != nil {
		return nil, err
	}

	if met.HTTPRequestDuration, err = m.Float64Histogram("lexara.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
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

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
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

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordHMMEvaluation is a convenience method that records an HMM
// activation counter increment for the given utterance phase.
func (m *Metrics) RecordHMMEvaluation(ctx context.Context, phase string, n int64) {
	m.HMMEvaluations.Add(ctx, n, metric.WithAttributes(attribute.String("phase", phase)))
}

// RecordSenoneEvaluations is a convenience method that records senone
// evaluation counts for a single frame.
func (m *Metrics) RecordSenoneEvaluations(ctx context.Context, n int64) {
	m.SenoneEvaluations.Add(ctx, n)
}

// RecordWordExit is a convenience method that records a word-exit history
// commit.
func (m *Metrics) RecordWordExit(ctx context.Context) {
	m.WordExits.Add(ctx, 1)
}

// RecordAcousticError is a convenience method that records an acoustic
// model error counter increment for the given operation.
func (m *Metrics) RecordAcousticError(ctx context.Context, op string) {
	m.AcousticErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}

// SetBeamFactor is a convenience method that records the controller's
// current adaptive beam factor.
func (m *Metrics) SetBeamFactor(ctx context.Context, factor float64) {
	m.BeamFactor.Record(ctx, factor)
}
