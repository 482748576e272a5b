// Package observe provides application-wide observability primitives:
// OpenTelemetry metrics, a Prometheus exporter bridge, and HTTP middleware.
//
// Metrics are recorded through the OpenTelemetry Metrics API and exported
// via Prometheus so they can be scraped from the standard /metrics endpoint.
// Tests should use [NewMetrics] with a ManualReader-backed MeterProvider to
// avoid cross-test pollution.
package observe

import (
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/sayright/sayright"

// Metrics holds all OpenTelemetry metric instruments for the service.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// TTSDuration tracks reference-audio synthesis latency (cache misses only).
	TTSDuration metric.Float64Histogram

	// ASRDuration tracks transcription latency (cache misses only).
	ASRDuration metric.Float64Histogram

	// PhoneGenDuration tracks reference-phone generation latency.
	PhoneGenDuration metric.Float64Histogram

	// GOPDuration tracks the external evaluator's latency.
	GOPDuration metric.Float64Histogram

	// EvaluationDuration tracks end-to-end pipeline latency per request.
	EvaluationDuration metric.Float64Histogram

	// --- Counters ---

	// CacheLookups counts cache gets. Use with attributes:
	//   attribute.String("cache", "tts"|"asr"), attribute.String("outcome", "hit"|"miss")
	CacheLookups metric.Int64Counter

	// Evaluations counts pipeline runs. Use with attribute:
	//   attribute.String("status", "ok"|"error")
	Evaluations metric.Int64Counter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes: attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds). The upper
// buckets are generous because a cold GOP evaluation can take tens of seconds.
var latencyBuckets = []float64{
	0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	histograms := []struct {
		field *metric.Float64Histogram
		name  string
		desc  string
	}{
		{&met.TTSDuration, "sayright.tts.duration", "Latency of reference audio synthesis."},
		{&met.ASRDuration, "sayright.asr.duration", "Latency of transcription."},
		{&met.PhoneGenDuration, "sayright.phonegen.duration", "Latency of reference phone generation."},
		{&met.GOPDuration, "sayright.gop.duration", "Latency of the GOP evaluator."},
		{&met.EvaluationDuration, "sayright.evaluation.duration", "End-to-end pronunciation evaluation latency."},
		{&met.HTTPRequestDuration, "sayright.http.request.duration", "HTTP request processing time."},
	}
	for _, h := range histograms {
		if *h.field, err = m.Float64Histogram(h.name,
			metric.WithDescription(h.desc),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(latencyBuckets...),
		); err != nil {
			return nil, err
		}
	}

	if met.CacheLookups, err = m.Int64Counter("sayright.cache.lookups",
		metric.WithDescription("Cache lookups by cache kind and outcome."),
	); err != nil {
		return nil, err
	}
	if met.Evaluations, err = m.Int64Counter("sayright.evaluations",
		metric.WithDescription("Pronunciation evaluations by status."),
	); err != nil {
		return nil, err
	}

	return met, nil
}
