package publisher

import (
	"errors"
	"fmt"
	"time"

	"github.com/Sokol111/ecommerce-event-publisher/pkg/messaging/kafka/events"
	"github.com/Sokol111/ecommerce-event-publisher/pkg/messaging/kafka/serde"
	"github.com/google/uuid"
)

var (
	// ErrCircuitOpen matches every *CircuitOpenError.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrPublisherClosed is returned by Publish after Close has been called.
	ErrPublisherClosed = errors.New("event publisher is closed")
)

type (
	// EnvelopeError is returned when the envelope cannot be built.
	EnvelopeError = events.EnvelopeError
	// SerializationError is returned when the envelope has no JSON representation.
	SerializationError = serde.SerializationError
)

// CircuitOpenError is returned without any I/O while the breaker blocks publishing.
type CircuitOpenError struct {
	Topic     string
	EventType string
	// RetryAfter is the remaining cooldown; zero while a half-open trial is running.
	RetryAfter time.Duration
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit breaker is open: refusing to publish %s to topic %s (retry after %s)",
		e.EventType, e.Topic, e.RetryAfter)
}

func (e *CircuitOpenError) Unwrap() error { return ErrCircuitOpen }

// RejectedError is returned when the broker refuses the message for a reason retries cannot fix,
// such as an oversized record or an invalid topic. It does not count against the breaker.
type RejectedError struct {
	Topic   string
	EventID uuid.UUID
	Err     error
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("event %s rejected by broker for topic %s: %v", e.EventID, e.Topic, e.Err)
}

func (e *RejectedError) Unwrap() error { return e.Err }

// deliveryOutcome tags the result of the retry executor.
type deliveryOutcome int

const (
	outcomeDelivered deliveryOutcome = iota
	outcomeExhausted
	outcomeRejected
	outcomeCancelled
)

func (o deliveryOutcome) String() string {
	switch o {
	case outcomeDelivered:
		return "delivered"
	case outcomeExhausted:
		return "exhausted"
	case outcomeRejected:
		return "rejected"
	case outcomeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// deliveryResult is what the retry executor hands back to the orchestrator.
// err is the last broker error, or the context error for outcomeCancelled.
type deliveryResult struct {
	outcome  deliveryOutcome
	attempts int
	err      error
}

func (r deliveryResult) retries() int {
	return max(r.attempts-1, 0)
}
