package publisher

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/Sokol111/ecommerce-event-publisher/pkg/messaging/publisher"

// PublisherMetrics is a snapshot of the publisher counters.
// Counters only grow; CircuitBreakerState and CircuitBreakerFailures describe the current breaker.
type PublisherMetrics struct {
	EventsPublished        int64   `json:"events_published"`
	EventsFailed           int64   `json:"events_failed"`
	EventsSentToDLQ        int64   `json:"events_sent_to_dlq"`
	EventsRejected         int64   `json:"events_rejected"`
	RetriesAttempted       int64   `json:"retries_attempted"`
	CircuitBreakerOpens    int64   `json:"circuit_breaker_opens"`
	SerializationErrors    int64   `json:"serialization_errors"`
	EnvelopeErrors         int64   `json:"envelope_errors"`
	TotalPublishTimeMs     float64 `json:"total_publish_time_ms"`
	AvgPublishTimeMs       float64 `json:"avg_publish_time_ms"`
	CircuitBreakerState    string  `json:"circuit_breaker_state"`
	CircuitBreakerFailures int     `json:"circuit_breaker_failures"`
}

// metricsRecorder keeps the in-process counters and mirrors them to OpenTelemetry.
// Each record call updates its counters under one lock, so a snapshot never sees half an update.
type metricsRecorder struct {
	mu     sync.Mutex
	values PublisherMetrics

	published     metric.Int64Counter
	failed        metric.Int64Counter
	dlq           metric.Int64Counter
	rejected      metric.Int64Counter
	retries       metric.Int64Counter
	breakerOpens  metric.Int64Counter
	dataErrors    metric.Int64Counter
	publishTimeMs metric.Float64Histogram
}

func newMetricsRecorder(mp metric.MeterProvider) (*metricsRecorder, error) {
	meter := mp.Meter(meterName)
	r := &metricsRecorder{}

	var err error
	if r.published, err = meter.Int64Counter("eventpublisher.events.published",
		metric.WithDescription("Events confirmed by the broker")); err != nil {
		return nil, err
	}
	if r.failed, err = meter.Int64Counter("eventpublisher.events.failed",
		metric.WithDescription("Events that exhausted all retries")); err != nil {
		return nil, err
	}
	if r.dlq, err = meter.Int64Counter("eventpublisher.events.dlq",
		metric.WithDescription("Events delivered to a dead-letter topic")); err != nil {
		return nil, err
	}
	if r.rejected, err = meter.Int64Counter("eventpublisher.events.rejected",
		metric.WithDescription("Events refused by the broker with a non-retryable error")); err != nil {
		return nil, err
	}
	if r.retries, err = meter.Int64Counter("eventpublisher.retries",
		metric.WithDescription("Publish retries after a transient failure")); err != nil {
		return nil, err
	}
	if r.breakerOpens, err = meter.Int64Counter("eventpublisher.circuit_breaker.opens",
		metric.WithDescription("Times the circuit breaker opened")); err != nil {
		return nil, err
	}
	if r.dataErrors, err = meter.Int64Counter("eventpublisher.data_errors",
		metric.WithDescription("Publishes refused because of envelope or serialization errors")); err != nil {
		return nil, err
	}
	if r.publishTimeMs, err = meter.Float64Histogram("eventpublisher.publish.duration",
		metric.WithDescription("Time from publish call to broker confirmation"),
		metric.WithUnit("ms")); err != nil {
		return nil, err
	}
	return r, nil
}

func topicAttr(topic string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("messaging.destination.name", topic))
}

func (r *metricsRecorder) recordPublished(ctx context.Context, topic string, elapsed time.Duration, retries int) {
	ms := float64(elapsed) / float64(time.Millisecond)

	r.mu.Lock()
	r.values.EventsPublished++
	r.values.TotalPublishTimeMs += ms
	r.values.RetriesAttempted += int64(retries)
	r.mu.Unlock()

	r.published.Add(ctx, 1, topicAttr(topic))
	r.publishTimeMs.Record(ctx, ms, topicAttr(topic))
	if retries > 0 {
		r.retries.Add(ctx, int64(retries), topicAttr(topic))
	}
}

func (r *metricsRecorder) recordFailed(ctx context.Context, topic string, retries int) {
	r.mu.Lock()
	r.values.EventsFailed++
	r.values.RetriesAttempted += int64(retries)
	r.mu.Unlock()

	r.failed.Add(ctx, 1, topicAttr(topic))
	if retries > 0 {
		r.retries.Add(ctx, int64(retries), topicAttr(topic))
	}
}

func (r *metricsRecorder) recordRejected(ctx context.Context, topic string, retries int) {
	r.mu.Lock()
	r.values.EventsRejected++
	r.values.RetriesAttempted += int64(retries)
	r.mu.Unlock()

	r.rejected.Add(ctx, 1, topicAttr(topic))
	if retries > 0 {
		r.retries.Add(ctx, int64(retries), topicAttr(topic))
	}
}

func (r *metricsRecorder) recordSentToDLQ(ctx context.Context, topic string) {
	r.mu.Lock()
	r.values.EventsSentToDLQ++
	r.mu.Unlock()

	r.dlq.Add(ctx, 1, topicAttr(topic))
}

func (r *metricsRecorder) recordBreakerOpen() {
	r.mu.Lock()
	r.values.CircuitBreakerOpens++
	r.mu.Unlock()

	r.breakerOpens.Add(context.Background(), 1)
}

func (r *metricsRecorder) recordEnvelopeError(ctx context.Context) {
	r.mu.Lock()
	r.values.EnvelopeErrors++
	r.mu.Unlock()

	r.dataErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("error.type", "envelope")))
}

func (r *metricsRecorder) recordSerializationError(ctx context.Context) {
	r.mu.Lock()
	r.values.SerializationErrors++
	r.mu.Unlock()

	r.dataErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("error.type", "serialization")))
}

// snapshot copies the counters and fills in the breaker status.
func (r *metricsRecorder) snapshot(breaker BreakerSnapshot) PublisherMetrics {
	r.mu.Lock()
	m := r.values
	r.mu.Unlock()

	if m.EventsPublished > 0 {
		m.AvgPublishTimeMs = m.TotalPublishTimeMs / float64(m.EventsPublished)
	}
	m.CircuitBreakerState = breaker.State.String()
	m.CircuitBreakerFailures = breaker.FailureCount
	return m
}

// registerBreakerGauge exports the breaker state (0 closed, 1 open, 2 half-open).
func registerBreakerGauge(mp metric.MeterProvider, breaker *circuitBreaker) error {
	_, err := mp.Meter(meterName).Int64ObservableGauge("eventpublisher.circuit_breaker.state",
		metric.WithDescription("Circuit breaker state: 0 closed, 1 open, 2 half-open"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(breaker.snapshot().State))
			return nil
		}),
	)
	return err
}
