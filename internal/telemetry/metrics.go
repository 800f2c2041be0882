package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ProviderMetrics records wind data retrieval calls and cache outcomes.
type ProviderMetrics struct {
	requestDuration metric.Float64Histogram
	requestTotal    metric.Int64Counter
	cacheHits       metric.Int64Counter
	cacheMisses     metric.Int64Counter
}

// NewProviderMetrics creates the provider instruments on the global meter.
func NewProviderMetrics() (*ProviderMetrics, error) {
	meter := otel.Meter(scopeName)

	requestDuration, err := meter.Float64Histogram(
		"provider.request.duration",
		metric.WithDescription("Duration of wind data retrievals in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}
	requestTotal, err := meter.Int64Counter(
		"provider.request.total",
		metric.WithDescription("Total number of wind data retrievals"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}
	cacheHits, err := meter.Int64Counter(
		"provider.cache.hit",
		metric.WithDescription("Retrievals served from cache"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return nil, err
	}
	cacheMisses, err := meter.Int64Counter(
		"provider.cache.miss",
		metric.WithDescription("Retrievals not in cache"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return nil, err
	}

	return &ProviderMetrics{
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
	}, nil
}

func providerAttrs(provider, operation string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("provider.name", provider),
		attribute.String("provider.operation", operation),
	}
}

// RecordRequest records one provider call.
func (m *ProviderMetrics) RecordRequest(provider, operation string, duration time.Duration, err error) {
	attrs := providerAttrs(provider, operation)
	if err != nil {
		attrs = append(attrs, attribute.Bool("error", true))
	}
	// Retrievals outlive request contexts; record on a fresh one.
	ctx := context.TODO()
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	m.requestTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordCacheHit records a cache hit.
func (m *ProviderMetrics) RecordCacheHit(provider, operation string) {
	m.cacheHits.Add(context.TODO(), 1, metric.WithAttributes(providerAttrs(provider, operation)...))
}

// RecordCacheMiss records a cache miss.
func (m *ProviderMetrics) RecordCacheMiss(provider, operation string) {
	m.cacheMisses.Add(context.TODO(), 1, metric.WithAttributes(providerAttrs(provider, operation)...))
}

// JobMetrics records report job outcomes in the worker.
type JobMetrics struct {
	duration metric.Float64Histogram
	total    metric.Int64Counter
}

// NewJobMetrics creates the job instruments on the global meter.
func NewJobMetrics() (*JobMetrics, error) {
	meter := otel.Meter(scopeName)

	duration, err := meter.Float64Histogram(
		"worker.job.duration",
		metric.WithDescription("Duration of report jobs in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}
	total, err := meter.Int64Counter(
		"worker.job.total",
		metric.WithDescription("Report jobs by outcome"),
		metric.WithUnit("{job}"),
	)
	if err != nil {
		return nil, err
	}
	return &JobMetrics{duration: duration, total: total}, nil
}

// RecordJob records one finished job. outcome is e.g. "success", "failed"
// or "retry".
func (m *JobMetrics) RecordJob(ctx context.Context, analysis, outcome string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("job.analysis", analysis),
		attribute.String("job.outcome", outcome),
	)
	m.duration.Record(ctx, duration.Seconds(), attrs)
	m.total.Add(ctx, 1, attrs)
}
