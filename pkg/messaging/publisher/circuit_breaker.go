package publisher

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker/v2"
)

// BreakerState is the state of the publish circuit breaker.
type BreakerState int

const (
	StateClosed BreakerState = iota
	StateOpen
	// StateHalfOpen admits a single trial publish after the cooldown.
	StateHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

func fromGobreaker(s gobreaker.State) BreakerState {
	switch s {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}

// BreakerSnapshot is a point-in-time copy of the breaker state.
type BreakerSnapshot struct {
	State        BreakerState
	FailureCount int
	// LastFailure is zero when no failure was recorded since the last success.
	LastFailure time.Time
}

// IsOpen reports whether publishing is currently blocked.
func (s BreakerSnapshot) IsOpen() bool { return s.State == StateOpen }

// breakerPermit is handed out by acquire and must be settled with exactly one of
// recordSuccess, recordFailure or release.
type breakerPermit struct {
	done func(error)
}

type breakerSettings struct {
	threshold     int
	cooldown      time.Duration
	onStateChange func(from, to BreakerState, snapshot BreakerSnapshot)
}

var (
	// errReleased marks an outcome that must not count as success or failure.
	errReleased  = errors.New("publish released without outcome")
	errExhausted = errors.New("publish exhausted retries")
)

// circuitBreaker counts consecutive exhausted publishes on top of a two-step gobreaker.
// Only transient infrastructure failures are recorded; data errors and cancellations
// are excluded and leave the counts untouched.
//
// gobreaker clears its counts on every state change, so the reported failure count and
// the time of the last failure are kept beside it and survive the half-open trial.
type circuitBreaker struct {
	cb       *gobreaker.TwoStepCircuitBreaker[struct{}]
	cooldown time.Duration

	failureCount atomic.Int64
	lastFailure  atomic.Int64 // unix nanos, zero when unset
	openedAt     atomic.Int64
}

func newCircuitBreaker(settings breakerSettings) *circuitBreaker {
	threshold := uint32(max(settings.threshold, 1))
	b := &circuitBreaker{cooldown: settings.cooldown}

	b.cb = gobreaker.NewTwoStepCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "event-publisher",
		MaxRequests: 1,
		Timeout:     settings.cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsExcluded: isExcluded,
		// Runs under the gobreaker lock: must not call back into b.cb.
		OnStateChange: func(_ string, from, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				b.openedAt.Store(time.Now().UnixNano())
			}
			if settings.onStateChange != nil {
				settings.onStateChange(fromGobreaker(from), fromGobreaker(to), b.snapshotAs(fromGobreaker(to)))
			}
		},
	})
	return b
}

func isExcluded(err error) bool {
	var rejected *RejectedError
	return errors.Is(err, errReleased) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.As(err, &rejected)
}

// acquire admits a publish attempt. It never performs I/O.
// It returns ErrCircuitOpen while the breaker is open or a half-open trial is already running.
func (b *circuitBreaker) acquire() (breakerPermit, error) {
	done, err := b.cb.Allow()
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return breakerPermit{}, ErrCircuitOpen
		}
		return breakerPermit{}, err
	}
	return breakerPermit{done: done}, nil
}

// isOpen reports whether the breaker blocks publishing right now.
// Once the cooldown has elapsed the breaker is half-open and isOpen returns false.
func (b *circuitBreaker) isOpen() bool {
	return b.cb.State() == gobreaker.StateOpen
}

func (b *circuitBreaker) recordSuccess(p breakerPermit) {
	p.settle(nil)
	if b.cb.State() == gobreaker.StateClosed {
		b.failureCount.Store(0)
		b.lastFailure.Store(0)
	}
}

func (b *circuitBreaker) recordFailure(p breakerPermit, cause error) {
	b.failureCount.Add(1)
	b.lastFailure.Store(time.Now().UnixNano())
	if cause == nil || isExcluded(cause) {
		cause = errExhausted
	}
	p.settle(cause)
}

// release settles a permit without recording an outcome. A half-open trial slot is freed.
func (b *circuitBreaker) release(p breakerPermit, cause error) {
	if cause == nil || !isExcluded(cause) {
		cause = errReleased
	}
	p.settle(cause)
}

func (p breakerPermit) settle(err error) {
	if p.done != nil {
		p.done(err)
	}
}

func (b *circuitBreaker) snapshot() BreakerSnapshot {
	return b.snapshotAs(fromGobreaker(b.cb.State()))
}

func (b *circuitBreaker) snapshotAs(state BreakerState) BreakerSnapshot {
	s := BreakerSnapshot{
		State:        state,
		FailureCount: int(b.failureCount.Load()),
	}
	if ns := b.lastFailure.Load(); ns != 0 {
		s.LastFailure = time.Unix(0, ns)
	}
	return s
}

// retryAfter is how long until the cooldown elapses; zero when not open.
func (b *circuitBreaker) retryAfter() time.Duration {
	if !b.isOpen() {
		return 0
	}
	return max(b.cooldown-time.Since(time.Unix(0, b.openedAt.Load())), 0)
}
