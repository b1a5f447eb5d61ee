// Package observe provides application-wide observability primitives:
// OpenTelemetry metrics, structured request logging, and HTTP middleware
// that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
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

// meterName is the instrumentation scope name used for all intake metrics.
const meterName = "github.com/geniusjr001/claimsvoice"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use, the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// TurnDuration tracks full conversation turn processing latency.
	TurnDuration metric.Float64Histogram

	// STTDuration tracks speech-to-text transcription latency.
	STTDuration metric.Float64Histogram

	// TTSDuration tracks text-to-speech synthesis latency.
	TTSDuration metric.Float64Histogram

	// --- Counters ---

	// FieldExtractions counts claim fields filled from user input. Use
	// with attribute: attribute.String("field", ...)
	FieldExtractions metric.Int64Counter

	// SessionsStarted counts new intake sessions.
	SessionsStarted metric.Int64Counter

	// SessionsCompleted counts sessions that reached the completion
	// message.
	SessionsCompleted metric.Int64Counter

	// ClaimsSubmitted counts claims pushed to the CRM. Use with attribute:
	//   attribute.String("status", "ok"|"error")
	ClaimsSubmitted metric.Int64Counter

	// ProviderRequests counts provider API calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions reports the number of live intake sessions. The value
	// is read from the session store at collection time via
	// [Metrics.ObserveActiveSessions], so TTL evictions are reflected
	// without any bookkeeping on the request path.
	ActiveSessions metric.Int64ObservableGauge

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram

	// meter is retained for registering observable callbacks.
	meter metric.Meter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// the voice pipeline, where a turn should stay under a couple of seconds.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{meter: m}

	// Histograms.
	if met.TurnDuration, err = m.Float64Histogram("claimsvoice.turn.duration",
		metric.WithDescription("Latency of a full conversation turn."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.STTDuration, err = m.Float64Histogram("claimsvoice.stt.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TTSDuration, err = m.Float64Histogram("claimsvoice.tts.duration",
		metric.WithDescription("Latency of text-to-speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.FieldExtractions, err = m.Int64Counter("claimsvoice.field.extractions",
		metric.WithDescription("Total claim fields filled from user input, by field name."),
	); err != nil {
		return nil, err
	}
	if met.SessionsStarted, err = m.Int64Counter("claimsvoice.sessions.started",
		metric.WithDescription("Total intake sessions started."),
	); err != nil {
		return nil, err
	}
	if met.SessionsCompleted, err = m.Int64Counter("claimsvoice.sessions.completed",
		metric.WithDescription("Total intake sessions that collected every field."),
	); err != nil {
		return nil, err
	}
	if met.ClaimsSubmitted, err = m.Int64Counter("claimsvoice.claims.submitted",
		metric.WithDescription("Total claims pushed to the CRM, by status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderRequests, err = m.Int64Counter("claimsvoice.provider.requests",
		metric.WithDescription("Total provider API requests by provider, kind, and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("claimsvoice.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}

	// Gauges.
	if met.ActiveSessions, err = m.Int64ObservableGauge("claimsvoice.active_sessions",
		metric.WithDescription("Number of live intake sessions."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("claimsvoice.http.request.duration",
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

// ObserveActiveSessions registers count as the source for the active-session
// gauge. The callback runs on every collection, so the gauge tracks the
// store's view of live sessions including TTL evictions. The returned
// registration unhooks the callback, tests use it for cleanup.
func (m *Metrics) ObserveActiveSessions(count func(ctx context.Context) (int64, error)) (metric.Registration, error) {
	return m.meter.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
		n, err := count(ctx)
		if err != nil {
			return err
		}
		o.ObserveInt64(m.ActiveSessions, n)
		return nil
	}, m.ActiveSessions)
}

// RecordFieldExtraction records one filled claim field.
func (m *Metrics) RecordFieldExtraction(ctx context.Context, field string) {
	m.FieldExtractions.Add(ctx, 1,
		metric.WithAttributes(attribute.String("field", field)),
	)
}

// RecordProviderRequest records a provider request counter increment with the
// standard attribute set.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, kind, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
}

// RecordProviderError records a provider error counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}

// RecordClaimSubmitted records a CRM submission outcome.
func (m *Metrics) RecordClaimSubmitted(ctx context.Context, status string) {
	m.ClaimsSubmitted.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
}
