package publisher

import (
	"context"
	"errors"
	"maps"
	"sync"
	"testing"
	"time"

	"github.com/Sokol111/ecommerce-event-publisher/pkg/messaging/kafka/producer"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

var errBrokerDown = errors.New("all brokers down")

func transientErr(topic string) error {
	return &producer.TransientError{Topic: topic, Err: errBrokerDown}
}

// fakeClient records every produce attempt. produce decides the outcome; nil means success.
type fakeClient struct {
	mu             sync.Mutex
	produce        func(ctx context.Context, msg *producer.Message) error
	attempts       []producer.Message
	flushRemaining int
	flushCalls     int
	flushTimeouts  []time.Duration
	closeCalls     int
}

func (c *fakeClient) Produce(ctx context.Context, msg *producer.Message) error {
	c.mu.Lock()
	recorded := *msg
	recorded.Headers = maps.Clone(msg.Headers)
	c.attempts = append(c.attempts, recorded)
	produce := c.produce
	c.mu.Unlock()

	if produce == nil {
		return nil
	}
	return produce(ctx, msg)
}

func (c *fakeClient) Flush(timeout time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flushCalls++
	c.flushTimeouts = append(c.flushTimeouts, timeout)
	return c.flushRemaining
}

func (c *fakeClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeCalls++
}

func (c *fakeClient) messagesTo(topic string) []producer.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []producer.Message
	for _, m := range c.attempts {
		if m.Topic == topic {
			out = append(out, m)
		}
	}
	return out
}

func (c *fakeClient) attemptCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.attempts)
}

// failTopic fails every attempt on topic with a transient error and accepts everything else.
func failTopic(topic string) func(context.Context, *producer.Message) error {
	return func(_ context.Context, msg *producer.Message) error {
		if msg.Topic == topic {
			return transientErr(topic)
		}
		return nil
	}
}

func testOptions() Options {
	opts := DefaultOptions("orders-service")
	opts.InstanceID = "orders-1"
	opts.Hostname = "host-a"
	opts.RetryBackoff = time.Millisecond
	opts.MaxBackoff = 4 * time.Millisecond
	opts.DLQTimeout = time.Second
	opts.FlushTimeout = time.Second
	opts.TracerProvider = tracenoop.NewTracerProvider()
	opts.MeterProvider = metricnoop.NewMeterProvider()
	return opts
}

func newTestPublisher(t *testing.T, client *fakeClient, mutate ...func(*Options)) *EventPublisher {
	t.Helper()
	opts := testOptions()
	for _, m := range mutate {
		m(&opts)
	}
	p, err := New(client, opts, zap.NewNop())
	require.NoError(t, err)
	return p
}
