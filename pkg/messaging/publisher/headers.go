package publisher

import (
	"strconv"
	"time"

	"github.com/Sokol111/ecommerce-event-publisher/pkg/messaging/kafka/events"
	"github.com/samber/lo"
)

// Message headers set on every produced record.
const (
	HeaderEventType     = "event-type"
	HeaderEventID       = "event-id"
	HeaderCorrelationID = "correlation-id"
	HeaderCausationID   = "causation-id"
	HeaderContentType   = "content-type"

	HeaderDLQOriginalTopic = "dlq.original.topic"
	HeaderDLQError         = "dlq.error"
	HeaderDLQTimestamp     = "dlq.timestamp"
	HeaderDLQRetryCount    = "dlq.retry-count"
)

func envelopeHeaders(envelope *events.EventEnvelope, contentType string) map[string]string {
	headers := map[string]string{
		HeaderEventType:     envelope.EventType(),
		HeaderEventID:       envelope.EventID().String(),
		HeaderCorrelationID: envelope.CorrelationID().String(),
		HeaderContentType:   contentType,
	}
	if causationID, ok := envelope.CausationID(); ok {
		headers[HeaderCausationID] = causationID.String()
	}
	return headers
}

func dlqHeaders(base map[string]string, originalTopic, errText string, failedAt time.Time, retries int) map[string]string {
	return lo.Assign(base, map[string]string{
		HeaderDLQOriginalTopic: originalTopic,
		HeaderDLQError:         errText,
		HeaderDLQTimestamp:     failedAt.Format(time.RFC3339),
		HeaderDLQRetryCount:    strconv.Itoa(retries),
	})
}
