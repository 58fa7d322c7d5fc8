package producer

import (
	"errors"
	"fmt"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// ErrDeliveryTimeout is wrapped by a TransientError when no delivery report arrives in time.
var ErrDeliveryTimeout = errors.New("delivery report not received")

// TransientError is an infrastructure failure that may succeed on retry:
// connection loss, timeouts, unavailable brokers or leaders, a full local queue.
type TransientError struct {
	Topic string
	Err   error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient failure producing to topic %s: %v", e.Topic, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err is, or wraps, a *TransientError.
func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}

// transientCodes are broker and client error codes worth retrying.
var transientCodes = map[kafka.ErrorCode]struct{}{
	kafka.ErrTransport:                    {},
	kafka.ErrAllBrokersDown:               {},
	kafka.ErrTimedOut:                     {},
	kafka.ErrMsgTimedOut:                  {},
	kafka.ErrTimedOutQueue:                {},
	kafka.ErrQueueFull:                    {},
	kafka.ErrResolve:                      {},
	kafka.ErrRequestTimedOut:              {},
	kafka.ErrNetworkException:             {},
	kafka.ErrLeaderNotAvailable:           {},
	kafka.ErrNotLeaderForPartition:        {},
	kafka.ErrBrokerNotAvailable:           {},
	kafka.ErrNotEnoughReplicas:            {},
	kafka.ErrNotEnoughReplicasAfterAppend: {},
}

// classify wraps err as a *TransientError when it is retriable.
// Anything else is returned as a plain wrapped error and should not be retried.
func classify(topic string, err error) error {
	var kafkaErr kafka.Error
	if errors.As(err, &kafkaErr) {
		if _, ok := transientCodes[kafkaErr.Code()]; ok || kafkaErr.IsRetriable() {
			return &TransientError{Topic: topic, Err: err}
		}
	}
	return fmt.Errorf("failed to send message to topic %s: %w", topic, err)
}
