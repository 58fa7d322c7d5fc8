package serde

import (
	"bytes"
	"encoding/json"

	"github.com/Sokol111/ecommerce-event-publisher/pkg/messaging/kafka/events"
)

// ContentTypeJSON is sent in the content-type header of every JSON message.
const ContentTypeJSON = "application/json"

type jsonSerializer struct {
	sanitizer *Sanitizer
}

// NewJSONSerializer returns a Serializer producing UTF-8 JSON.
// A nil sanitizer disables secret masking.
func NewJSONSerializer(sanitizer *Sanitizer) Serializer {
	return &jsonSerializer{sanitizer: sanitizer}
}

func (s *jsonSerializer) Serialize(envelope *events.EventEnvelope) ([]byte, error) {
	data, err := encode(envelope)
	if err != nil {
		return nil, &SerializationError{
			EventID:   envelope.EventID(),
			EventType: envelope.EventType(),
			Err:       err,
		}
	}
	return s.sanitize(data), nil
}

func (s *jsonSerializer) Marshal(v any) ([]byte, error) {
	data, err := encode(v)
	if err != nil {
		return nil, &SerializationError{Err: err}
	}
	return s.sanitize(data), nil
}

// encode is json.Marshal without HTML escaping. With escaping on, "&" in a URL
// becomes "\u0026" and query-string rules would no longer see the separator.
func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func (s *jsonSerializer) ContentType() string {
	return ContentTypeJSON
}

func (s *jsonSerializer) sanitize(data []byte) []byte {
	if s.sanitizer == nil {
		return data
	}
	return s.sanitizer.Sanitize(data)
}
