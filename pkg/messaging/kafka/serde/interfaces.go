// Package serde turns event envelopes into the bytes sent to the broker.
package serde

import "github.com/Sokol111/ecommerce-event-publisher/pkg/messaging/kafka/events"

// Serializer serializes envelopes and auxiliary documents (such as dead-letter records) to bytes.
type Serializer interface {
	// Serialize renders the envelope in its canonical wire form.
	// Failures are *SerializationError.
	Serialize(envelope *events.EventEnvelope) ([]byte, error)

	// Marshal renders any JSON-compatible value through the same pipeline.
	Marshal(v any) ([]byte, error)

	// ContentType is the value of the content-type header for produced messages.
	ContentType() string
}
