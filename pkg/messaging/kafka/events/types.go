package events

import (
	"bytes"
	"encoding/json"
	"maps"
	"time"

	"github.com/google/uuid"
)

// Payload is implemented by anything that can be attached to an envelope.
// ToSerializable must return a JSON-compatible map; the envelope builder never
// inspects the payload through reflection.
type Payload interface {
	ToSerializable() (map[string]any, error)
}

// Map is the simplest Payload: an already JSON-shaped map.
type Map map[string]any

// ToSerializable implements Payload.
func (m Map) ToSerializable() (map[string]any, error) {
	return m, nil
}

// RawJSON is a Payload backed by an encoded JSON object.
type RawJSON []byte

// ToSerializable decodes the raw bytes. Anything other than a JSON object is rejected.
func (r RawJSON) ToSerializable() (map[string]any, error) {
	var out map[string]any
	if err := json.Unmarshal(r, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Source identifies the producing service instance.
type Source struct {
	Service    string  `json:"service"`
	InstanceID string  `json:"instance_id"`
	Hostname   *string `json:"hostname"`
}

// EventEnvelope is the immutable wire-level wrapper of a single event.
// Fields are read through accessors so a built envelope cannot be altered.
type EventEnvelope struct {
	eventID       uuid.UUID
	eventType     string
	correlationID uuid.UUID
	causationID   uuid.UUID
	timestamp     time.Time
	source        Source
	metadata      map[string]string
	payload       map[string]any
}

func (e *EventEnvelope) EventID() uuid.UUID       { return e.eventID }
func (e *EventEnvelope) EventType() string        { return e.eventType }
func (e *EventEnvelope) CorrelationID() uuid.UUID { return e.correlationID }
func (e *EventEnvelope) Timestamp() time.Time     { return e.timestamp }
func (e *EventEnvelope) Source() Source           { return e.source }

// CausationID returns the id of the event that caused this one, if any.
func (e *EventEnvelope) CausationID() (uuid.UUID, bool) {
	return e.causationID, e.causationID != uuid.Nil
}

// Metadata returns a copy of the caller-supplied metadata, nil when none was given.
func (e *EventEnvelope) Metadata() map[string]string {
	return maps.Clone(e.metadata)
}

// Payload returns a shallow copy of the serializable payload.
func (e *EventEnvelope) Payload() map[string]any {
	return maps.Clone(e.payload)
}

type envelopeJSON struct {
	EventID       uuid.UUID         `json:"event_id"`
	EventType     string            `json:"event_type"`
	CorrelationID uuid.UUID         `json:"correlation_id"`
	CausationID   *uuid.UUID        `json:"causation_id"`
	Timestamp     time.Time         `json:"timestamp"`
	Source        Source            `json:"source"`
	Metadata      map[string]string `json:"metadata"`
	Payload       map[string]any    `json:"payload"`
}

// MarshalJSON renders the canonical wire form. Ids and the timestamp are strings,
// causation_id and metadata are null when absent. HTML characters are not escaped,
// so payload text reaches the sanitizer as written.
func (e *EventEnvelope) MarshalJSON() ([]byte, error) {
	wire := envelopeJSON{
		EventID:       e.eventID,
		EventType:     e.eventType,
		CorrelationID: e.correlationID,
		Timestamp:     e.timestamp,
		Source:        e.source,
		Metadata:      e.metadata,
		Payload:       e.payload,
	}
	if causationID, ok := e.CausationID(); ok {
		wire.CausationID = &causationID
	}
	return marshalUnescaped(wire)
}

func marshalUnescaped(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
