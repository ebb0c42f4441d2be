package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Metrics bundles the instruments the HTTP surface and the sweeper record to.
type Metrics struct {
	requests        otelmetric.Int64Counter
	requestDuration otelmetric.Float64Histogram
	sweptSessions   otelmetric.Int64Counter
	sweptTokens     otelmetric.Int64Counter
	prunedAttempts  otelmetric.Int64Counter
}

// NewMetrics creates the service instruments on the given meter provider.
func NewMetrics(mp *metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter("visitgate")

	requests, err := meter.Int64Counter("http.server.requests",
		otelmetric.WithDescription("Completed HTTP requests"))
	if err != nil {
		return nil, err
	}
	requestDuration, err := meter.Float64Histogram("http.server.duration",
		otelmetric.WithDescription("HTTP request duration"),
		otelmetric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}
	sweptSessions, err := meter.Int64Counter("sweep.sessions.deleted",
		otelmetric.WithDescription("Expired sessions deleted by the sweeper"))
	if err != nil {
		return nil, err
	}
	sweptTokens, err := meter.Int64Counter("sweep.reset_tokens.deleted",
		otelmetric.WithDescription("Dead reset tokens deleted by the sweeper"))
	if err != nil {
		return nil, err
	}
	prunedAttempts, err := meter.Int64Counter("sweep.rate_limit_attempts.pruned",
		otelmetric.WithDescription("Stale rate limit attempts pruned by the sweeper"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		requests:        requests,
		requestDuration: requestDuration,
		sweptSessions:   sweptSessions,
		sweptTokens:     sweptTokens,
		prunedAttempts:  prunedAttempts,
	}, nil
}

// RecordRequest records one completed HTTP request.
func (m *Metrics) RecordRequest(ctx context.Context, route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := otelmetric.WithAttributes(
		attribute.String("route", route),
		attribute.String("method", method),
		attribute.Int("status", status),
	)
	m.requests.Add(ctx, 1, attrs)
	m.requestDuration.Record(ctx, float64(elapsed.Milliseconds()), attrs)
}

// RecordSweep records one sweeper pass.
func (m *Metrics) RecordSweep(ctx context.Context, sessions, resetTokens, attempts int) {
	if m == nil {
		return
	}
	m.sweptSessions.Add(ctx, int64(sessions))
	m.sweptTokens.Add(ctx, int64(resetTokens))
	m.prunedAttempts.Add(ctx, int64(attempts))
}
