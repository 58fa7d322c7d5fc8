package tracing

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// GetTraceIDAndSpanID returns the ids of the span in ctx, or empty strings when there is none.
func GetTraceIDAndSpanID(ctx context.Context) (string, string) {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return "", ""
	}
	return sc.TraceID().String(), sc.SpanID().String()
}
