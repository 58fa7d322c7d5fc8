package producer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mockKafkaProducer is a mock implementation of kafkaProducer interface for testing.
type mockKafkaProducer struct {
	produceFunc func(msg *kafka.Message, deliveryChan chan kafka.Event) error
	flushFunc   func(timeoutMs int) int
	closed      bool
}

func (m *mockKafkaProducer) Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error {
	if m.produceFunc != nil {
		return m.produceFunc(msg, deliveryChan)
	}
	deliveryChan <- msg
	return nil
}

func (m *mockKafkaProducer) Flush(timeoutMs int) int {
	if m.flushFunc != nil {
		return m.flushFunc(timeoutMs)
	}
	return 0
}

func (m *mockKafkaProducer) Close() {
	m.closed = true
}

func reportWith(err error) func(msg *kafka.Message, deliveryChan chan kafka.Event) error {
	return func(msg *kafka.Message, deliveryChan chan kafka.Event) error {
		msg.TopicPartition.Error = err
		deliveryChan <- msg
		return nil
	}
}

func TestKafkaClient_Produce(t *testing.T) {
	t.Run("maps message fields and waits for delivery", func(t *testing.T) {
		var captured *kafka.Message
		mock := &mockKafkaProducer{
			produceFunc: func(msg *kafka.Message, deliveryChan chan kafka.Event) error {
				captured = msg
				deliveryChan <- msg
				return nil
			},
		}
		client := newKafkaClient(mock, time.Second, zap.NewNop())

		err := client.Produce(context.Background(), &Message{
			Topic:   "orders",
			Key:     []byte("key-1"),
			Value:   []byte(`{"a":1}`),
			Headers: map[string]string{"event-type": "orders"},
		})

		require.NoError(t, err)
		require.NotNil(t, captured)
		assert.Equal(t, "orders", *captured.TopicPartition.Topic)
		assert.Equal(t, kafka.PartitionAny, captured.TopicPartition.Partition)
		assert.Equal(t, []byte("key-1"), captured.Key)
		assert.Equal(t, []byte(`{"a":1}`), captured.Value)
		assert.Equal(t, []kafka.Header{{Key: "event-type", Value: []byte("orders")}}, captured.Headers)
	})

	t.Run("transient delivery error", func(t *testing.T) {
		mock := &mockKafkaProducer{produceFunc: reportWith(kafka.NewError(kafka.ErrMsgTimedOut, "timed out", false))}
		client := newKafkaClient(mock, time.Second, zap.NewNop())

		err := client.Produce(context.Background(), &Message{Topic: "orders"})

		require.Error(t, err)
		assert.True(t, IsTransient(err))
	})

	t.Run("permanent delivery error", func(t *testing.T) {
		mock := &mockKafkaProducer{produceFunc: reportWith(kafka.NewError(kafka.ErrMsgSizeTooLarge, "too large", false))}
		client := newKafkaClient(mock, time.Second, zap.NewNop())

		err := client.Produce(context.Background(), &Message{Topic: "orders"})

		require.Error(t, err)
		assert.False(t, IsTransient(err))
		var kafkaErr kafka.Error
		require.ErrorAs(t, err, &kafkaErr)
		assert.Equal(t, kafka.ErrMsgSizeTooLarge, kafkaErr.Code())
	})

	t.Run("queue full on enqueue is transient", func(t *testing.T) {
		mock := &mockKafkaProducer{
			produceFunc: func(*kafka.Message, chan kafka.Event) error {
				return kafka.NewError(kafka.ErrQueueFull, "queue full", false)
			},
		}
		client := newKafkaClient(mock, time.Second, zap.NewNop())

		err := client.Produce(context.Background(), &Message{Topic: "orders"})

		assert.True(t, IsTransient(err))
	})

	t.Run("non kafka enqueue error is not transient", func(t *testing.T) {
		mock := &mockKafkaProducer{
			produceFunc: func(*kafka.Message, chan kafka.Event) error {
				return errors.New("boom")
			},
		}
		client := newKafkaClient(mock, time.Second, zap.NewNop())

		err := client.Produce(context.Background(), &Message{Topic: "orders"})

		require.Error(t, err)
		assert.False(t, IsTransient(err))
		assert.Contains(t, err.Error(), "failed to send message to topic orders")
	})

	t.Run("missing delivery report is a transient timeout", func(t *testing.T) {
		mock := &mockKafkaProducer{
			produceFunc: func(*kafka.Message, chan kafka.Event) error { return nil },
		}
		client := newKafkaClient(mock, 20*time.Millisecond, zap.NewNop())

		err := client.Produce(context.Background(), &Message{Topic: "orders"})

		assert.True(t, IsTransient(err))
		assert.ErrorIs(t, err, ErrDeliveryTimeout)
	})

	t.Run("cancellation while waiting returns context error", func(t *testing.T) {
		mock := &mockKafkaProducer{
			produceFunc: func(*kafka.Message, chan kafka.Event) error { return nil },
		}
		client := newKafkaClient(mock, time.Minute, zap.NewNop())
		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(20*time.Millisecond, cancel)

		err := client.Produce(ctx, &Message{Topic: "orders"})

		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, IsTransient(err))
	})

	t.Run("already cancelled context skips the broker", func(t *testing.T) {
		called := false
		mock := &mockKafkaProducer{
			produceFunc: func(*kafka.Message, chan kafka.Event) error {
				called = true
				return nil
			},
		}
		client := newKafkaClient(mock, time.Second, zap.NewNop())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := client.Produce(ctx, &Message{Topic: "orders"})

		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, called)
	})

	t.Run("error event on delivery channel", func(t *testing.T) {
		mock := &mockKafkaProducer{
			produceFunc: func(_ *kafka.Message, deliveryChan chan kafka.Event) error {
				deliveryChan <- kafka.NewError(kafka.ErrAllBrokersDown, "down", false)
				return nil
			},
		}
		client := newKafkaClient(mock, time.Second, zap.NewNop())

		err := client.Produce(context.Background(), &Message{Topic: "orders"})

		assert.True(t, IsTransient(err))
	})
}

func TestKafkaClient_FlushAndClose(t *testing.T) {
	var flushedMs int
	mock := &mockKafkaProducer{
		flushFunc: func(timeoutMs int) int {
			flushedMs = timeoutMs
			return 2
		},
	}
	client := newKafkaClient(mock, time.Second, zap.NewNop())

	remaining := client.Flush(1500 * time.Millisecond)
	client.Close()

	assert.Equal(t, 2, remaining)
	assert.Equal(t, 1500, flushedMs)
	assert.True(t, mock.closed)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
	}{
		{"transport", kafka.NewError(kafka.ErrTransport, "", false), true},
		{"all brokers down", kafka.NewError(kafka.ErrAllBrokersDown, "", false), true},
		{"leader not available", kafka.NewError(kafka.ErrLeaderNotAvailable, "", false), true},
		{"request timed out", kafka.NewError(kafka.ErrRequestTimedOut, "", false), true},
		{"message too large", kafka.NewError(kafka.ErrMsgSizeTooLarge, "", false), false},
		{"invalid topic", kafka.NewError(kafka.ErrTopicException, "", false), false},
		{"plain error", errors.New("x"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify("t", tt.err)

			assert.Equal(t, tt.transient, IsTransient(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestToKafkaHeaders_Empty(t *testing.T) {
	assert.Nil(t, toKafkaHeaders(nil))
}
