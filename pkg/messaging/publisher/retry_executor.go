package publisher

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/Sokol111/ecommerce-event-publisher/pkg/messaging/kafka/producer"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// PanicError is a panic raised by the broker client, treated as a non-retryable failure.
type PanicError struct {
	Panic any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Panic)
}

// retryExecutor is the only component that talks to the broker for the main topic.
type retryExecutor struct {
	client         producer.Client
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	log            *zap.Logger
}

func newRetryExecutor(client producer.Client, maxRetries int, initialBackoff, maxBackoff time.Duration, log *zap.Logger) *retryExecutor {
	return &retryExecutor{
		client:         client,
		maxRetries:     maxRetries,
		initialBackoff: initialBackoff,
		maxBackoff:     maxBackoff,
		log:            log,
	}
}

// newBackOff returns the schedule initialBackoff * 2^n, capped at maxBackoff, without jitter.
func (r *retryExecutor) newBackOff(ctx context.Context) backoff.BackOffContext {
	exponential := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(r.initialBackoff),
		backoff.WithMultiplier(2),
		backoff.WithRandomizationFactor(0),
		backoff.WithMaxInterval(r.maxBackoff),
		backoff.WithMaxElapsedTime(0),
	)
	return backoff.WithContext(backoff.WithMaxRetries(exponential, uint64(r.maxRetries)), ctx)
}

// execute makes up to maxRetries+1 attempts. Only transient errors are retried;
// the backoff sleep returns as soon as ctx is done.
func (r *retryExecutor) execute(ctx context.Context, msg *producer.Message) deliveryResult {
	attempts := 0
	maxAttempts := r.maxRetries + 1

	operation := func() error {
		attempts++
		err := r.produce(ctx, msg)
		switch {
		case err == nil:
			return nil
		case ctx.Err() != nil:
			return backoff.Permanent(ctx.Err())
		case producer.IsTransient(err):
			return err
		default:
			return backoff.Permanent(err)
		}
	}

	notify := func(err error, next time.Duration) {
		r.log.Warn("transient publish failure, retrying",
			zap.String("topic", msg.Topic),
			zap.Int("attempt", attempts),
			zap.Int("maxAttempts", maxAttempts),
			zap.Duration("backoff", next),
			zap.Error(err),
		)
	}

	err := backoff.RetryNotify(operation, r.newBackOff(ctx), notify)

	switch {
	case err == nil:
		return deliveryResult{outcome: outcomeDelivered, attempts: attempts}
	case ctx.Err() != nil:
		return deliveryResult{outcome: outcomeCancelled, attempts: attempts, err: ctx.Err()}
	case producer.IsTransient(err):
		return deliveryResult{outcome: outcomeExhausted, attempts: attempts, err: err}
	default:
		return deliveryResult{outcome: outcomeRejected, attempts: attempts, err: err}
	}
}

func (r *retryExecutor) produce(ctx context.Context, msg *producer.Message) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &PanicError{Panic: rec, Stack: debug.Stack()}
		}
	}()
	return r.client.Produce(ctx, msg)
}

// isPanic reports whether err came from a recovered panic.
func isPanic(err error) bool {
	var panicErr *PanicError
	return errors.As(err, &panicErr)
}
