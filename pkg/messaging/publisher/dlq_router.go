package publisher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Sokol111/ecommerce-event-publisher/pkg/core/logger"
	"github.com/Sokol111/ecommerce-event-publisher/pkg/messaging/kafka/config"
	"github.com/Sokol111/ecommerce-event-publisher/pkg/messaging/kafka/events"
	"github.com/Sokol111/ecommerce-event-publisher/pkg/messaging/kafka/producer"
	"github.com/Sokol111/ecommerce-event-publisher/pkg/messaging/kafka/serde"
	"go.uber.org/zap"
)

// dlqRecord is the value written to "<topic>.dlq".
type dlqRecord struct {
	OriginalTopic    string          `json:"original_topic"`
	OriginalEnvelope json.RawMessage `json:"original_envelope"`
	Error            string          `json:"error"`
	FailedAt         time.Time       `json:"failed_at"`
	Producer         events.Source   `json:"producer"`
	RetryCount       int             `json:"retry_count"`
}

// dlqRouter makes a single best-effort attempt to dead-letter an event.
// It always sanitizes, whatever the publisher setting.
type dlqRouter struct {
	client     producer.Client
	serializer serde.Serializer
	sanitizer  *serde.Sanitizer
	source     events.Source
	timeout    time.Duration
	tracer     *publishTracer
	throttler  *logger.LogThrottler
	log        *zap.Logger
	now        func() time.Time
}

func newDLQRouter(client producer.Client, source events.Source, timeout time.Duration, tracer *publishTracer, log *zap.Logger) *dlqRouter {
	sanitizer := serde.NewSanitizer()
	return &dlqRouter{
		client:     client,
		serializer: serde.NewJSONSerializer(sanitizer),
		sanitizer:  sanitizer,
		source:     source,
		timeout:    timeout,
		tracer:     tracer,
		throttler:  logger.NewLogThrottler(log, time.Minute),
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// route publishes the failure record and reports whether the broker confirmed it.
// Errors are logged, never returned.
func (r *dlqRouter) route(ctx context.Context, original *producer.Message, envelope *events.EventEnvelope, failure deliveryResult) bool {
	dlqTopic := config.DLQTopic(original.Topic)
	failedAt := r.now()
	errText := "retries exhausted"
	if failure.err != nil {
		errText = r.sanitizer.SanitizeString(failure.err.Error())
	}

	fields := []zap.Field{
		zap.String("topic", original.Topic),
		zap.String("dlqTopic", dlqTopic),
		zap.String("eventId", envelope.EventID().String()),
		zap.String("eventType", envelope.EventType()),
	}

	value, err := r.serializer.Marshal(dlqRecord{
		OriginalTopic:    original.Topic,
		OriginalEnvelope: json.RawMessage(original.Value),
		Error:            errText,
		FailedAt:         failedAt,
		Producer:         r.source,
		RetryCount:       failure.retries(),
	})
	if err != nil {
		r.throttler.Error(dlqTopic, "failed to build DLQ record", append(fields, zap.Error(err))...)
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	ctx, span := r.tracer.start(ctx, "kafka.publish.dlq", dlqTopic, envelope)
	headers := dlqHeaders(original.Headers, original.Topic, errText, failedAt, failure.retries())
	r.tracer.inject(ctx, headers)

	err = r.client.Produce(ctx, &producer.Message{
		Topic:   dlqTopic,
		Key:     original.Key,
		Value:   value,
		Headers: headers,
	})
	if err != nil {
		endSpan(span, deliveryResult{outcome: outcomeExhausted, attempts: 1, err: err})
		r.throttler.Error(dlqTopic, "failed to send event to DLQ", append(fields, zap.Error(err))...)
		return false
	}

	endSpan(span, deliveryResult{outcome: outcomeDelivered, attempts: 1})
	r.log.Info("event sent to DLQ", append(fields, zap.Int("retryCount", failure.retries()))...)
	return true
}
