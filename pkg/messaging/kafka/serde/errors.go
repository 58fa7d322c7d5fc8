package serde

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrNotSerializable matches every *SerializationError through errors.Is.
var ErrNotSerializable = errors.New("value is not serializable")

// SerializationError reports a payload that has no JSON representation,
// such as a function, a channel, a cyclic structure or a NaN.
type SerializationError struct {
	EventID   uuid.UUID
	EventType string
	Err       error
}

func (e *SerializationError) Error() string {
	if e.EventType == "" {
		return fmt.Sprintf("serialization failed: %v", e.Err)
	}
	return fmt.Sprintf("serialization of %s event %s failed: %v", e.EventType, e.EventID, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

func (e *SerializationError) Is(target error) bool { return target == ErrNotSerializable }
