package events

import (
	"errors"
	"fmt"
)

// ErrInvalidEnvelope matches every *EnvelopeError through errors.Is.
var ErrInvalidEnvelope = errors.New("invalid event envelope")

// EnvelopeError reports an envelope that could not be constructed.
// It is a data error: retrying the same input fails the same way.
type EnvelopeError struct {
	Field  string
	Reason string
	Err    error
}

func (e *EnvelopeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid event envelope: %s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid event envelope: %s: %s", e.Field, e.Reason)
}

func (e *EnvelopeError) Unwrap() error { return e.Err }

func (e *EnvelopeError) Is(target error) bool { return target == ErrInvalidEnvelope }
