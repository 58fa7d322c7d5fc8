package events

import (
	"fmt"
	"maps"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// maxEventTypeLength keeps the default topic (the event type) within Kafka's topic name limit,
// leaving room for the ".dlq" suffix.
const maxEventTypeLength = 240

var eventTypePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_\-]*(\.[A-Za-z0-9_\-]+)*$`)

// Params carries the per-call inputs of Build.
type Params struct {
	EventType string
	Payload   Payload
	// CorrelationID is generated when uuid.Nil. An uncorrelated call starts a new causal chain.
	CorrelationID uuid.UUID
	// CausationID is optional; uuid.Nil renders as null.
	CausationID uuid.UUID
	Metadata    map[string]string
}

// Builder constructs envelopes for a fixed producer identity.
type Builder struct {
	source Source
	now    func() time.Time
	newID  func() uuid.UUID
}

// NewBuilder creates a Builder stamping every envelope with source.
func NewBuilder(source Source) *Builder {
	return &Builder{
		source: source,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.New,
	}
}

// Build validates the inputs and returns a fresh envelope with a new event id and timestamp.
// Every failure is an *EnvelopeError.
func (b *Builder) Build(p Params) (*EventEnvelope, error) {
	if err := validateEventType(p.EventType); err != nil {
		return nil, err
	}
	if b.source.Service == "" {
		return nil, &EnvelopeError{Field: "source.service", Reason: "must not be empty"}
	}

	payload, err := toSerializable(p.Payload)
	if err != nil {
		return nil, err
	}

	correlationID := p.CorrelationID
	if correlationID == uuid.Nil {
		correlationID = b.newID()
	}

	var metadata map[string]string
	if p.Metadata != nil {
		metadata = maps.Clone(p.Metadata)
	}

	return &EventEnvelope{
		eventID:       b.newID(),
		eventType:     p.EventType,
		correlationID: correlationID,
		causationID:   p.CausationID,
		timestamp:     b.now(),
		source:        b.source,
		metadata:      metadata,
		payload:       payload,
	}, nil
}

func validateEventType(eventType string) error {
	switch {
	case eventType == "":
		return &EnvelopeError{Field: "event_type", Reason: "must not be empty"}
	case len(eventType) > maxEventTypeLength:
		return &EnvelopeError{Field: "event_type", Reason: fmt.Sprintf("longer than %d characters", maxEventTypeLength)}
	case !eventTypePattern.MatchString(eventType):
		return &EnvelopeError{Field: "event_type", Reason: fmt.Sprintf("malformed value %q", eventType)}
	}
	return nil
}

// toSerializable converts the payload, turning conversion failures and panics into data errors.
func toSerializable(p Payload) (out map[string]any, err error) {
	if p == nil {
		return nil, &EnvelopeError{Field: "payload", Reason: "must not be nil"}
	}

	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = &EnvelopeError{Field: "payload", Reason: "conversion panicked", Err: fmt.Errorf("%v", r)}
		}
	}()

	out, err = p.ToSerializable()
	if err != nil {
		return nil, &EnvelopeError{Field: "payload", Reason: "cannot be converted to a map", Err: err}
	}
	if out == nil {
		return map[string]any{}, nil
	}
	return maps.Clone(out), nil
}
