package publisher

import (
	"context"

	"github.com/Sokol111/ecommerce-event-publisher/pkg/messaging/kafka/events"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/Sokol111/ecommerce-event-publisher/pkg/messaging/publisher"

// publishTracer creates producer spans and carries their context in message headers.
type publishTracer struct {
	tracer trace.Tracer
}

func newPublishTracer(tp trace.TracerProvider) *publishTracer {
	return &publishTracer{tracer: tp.Tracer(tracerName)}
}

func (t *publishTracer) start(ctx context.Context, spanName, topic string, envelope *events.EventEnvelope) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.operation.type", "send"),
			attribute.String("messaging.destination.name", topic),
			attribute.String("messaging.message.id", envelope.EventID().String()),
			attribute.String("messaging.message.conversation_id", envelope.CorrelationID().String()),
			attribute.String("event.type", envelope.EventType()),
		),
	)
}

// inject writes the W3C trace context of ctx into headers.
func (t *publishTracer) inject(ctx context.Context, headers map[string]string) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.MapCarrier(headers))
}

func endSpan(span trace.Span, result deliveryResult) {
	span.SetAttributes(
		attribute.Int("messaging.publish.attempts", result.attempts),
		attribute.String("messaging.publish.outcome", result.outcome.String()),
	)
	if result.outcome == outcomeDelivered {
		span.SetStatus(codes.Ok, "")
	} else if result.err != nil {
		span.RecordError(result.err)
		span.SetStatus(codes.Error, result.outcome.String())
	}
	span.End()
}
