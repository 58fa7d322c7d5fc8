package producer

import (
	"context"
	"fmt"
	"time"

	"github.com/Sokol111/ecommerce-event-publisher/pkg/messaging/kafka/config"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Message is a single record handed to the broker.
type Message struct {
	Topic   string
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// Client produces messages and waits for their delivery reports.
type Client interface {
	// Produce blocks until the broker confirms delivery, the delivery timeout passes or ctx is done.
	// Retriable failures are returned as *TransientError; cancellation returns ctx.Err().
	Produce(ctx context.Context, msg *Message) error

	// Flush waits up to timeout for queued messages and returns how many are still outstanding.
	Flush(timeout time.Duration) int

	// Close releases the broker connection.
	Close()
}

// kafkaProducer is the subset of *kafka.Producer used by kafkaClient.
type kafkaProducer interface {
	Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error
	Flush(timeoutMs int) int
	Close()
}

type kafkaClient struct {
	producer        kafkaProducer
	deliveryTimeout time.Duration
	log             *zap.Logger
}

func newKafkaClient(p kafkaProducer, deliveryTimeout time.Duration, log *zap.Logger) *kafkaClient {
	return &kafkaClient{producer: p, deliveryTimeout: deliveryTimeout, log: log}
}

// NewClient creates a Kafka-backed Client and waits for the brokers according to conf.
func NewClient(ctx context.Context, conf config.Config, log *zap.Logger) (Client, error) {
	log = log.With(zap.String("component", "producer"))

	p, err := newKafkaProducer(conf)
	if err != nil {
		return nil, err
	}

	if err := waitForBrokers(ctx, p, log, conf.ProducerConfig.ReadinessTimeoutSeconds, conf.ProducerConfig.FailOnBrokerError); err != nil {
		p.Close()
		return nil, err
	}

	go watchEvents(p.Events(), log)
	return newKafkaClient(p, conf.ProducerConfig.DeliveryTimeout, log), nil
}

func newKafkaProducer(conf config.Config) (*kafka.Producer, error) {
	cm := &kafka.ConfigMap{
		"bootstrap.servers":  conf.Brokers,
		"acks":               conf.ProducerConfig.Acks,
		"message.timeout.ms": int(conf.ProducerConfig.DeliveryTimeout.Milliseconds()),
	}
	if conf.ProducerConfig.Acks == "all" || conf.ProducerConfig.Acks == "-1" {
		_ = cm.SetKey("enable.idempotence", true) //nolint:errcheck // SetKey never fails for a bool
	}
	if conf.ProducerConfig.ClientID != "" {
		_ = cm.SetKey("client.id", conf.ProducerConfig.ClientID) //nolint:errcheck // SetKey never fails for a string
	}
	for _, property := range conf.ProducerConfig.Properties {
		if err := cm.Set(property); err != nil {
			return nil, fmt.Errorf("invalid producer property %q: %w", property, err)
		}
	}

	p, err := kafka.NewProducer(cm)
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}
	return p, nil
}

func (c *kafkaClient) Produce(ctx context.Context, msg *Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	topic := msg.Topic
	// Buffered so a report arriving after we stopped waiting does not block librdkafka.
	deliveryChan := make(chan kafka.Event, 1)

	err := c.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            msg.Key,
		Value:          msg.Value,
		Headers:        toKafkaHeaders(msg.Headers),
	}, deliveryChan)
	if err != nil {
		return classify(topic, err)
	}

	timer := time.NewTimer(c.deliveryTimeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return &TransientError{Topic: topic, Err: fmt.Errorf("%w within %s", ErrDeliveryTimeout, c.deliveryTimeout)}
	case e := <-deliveryChan:
		return deliveryResult(topic, e)
	}
}

func (c *kafkaClient) Flush(timeout time.Duration) int {
	return c.producer.Flush(int(timeout.Milliseconds()))
}

func (c *kafkaClient) Close() {
	c.producer.Close()
}

func deliveryResult(topic string, e kafka.Event) error {
	switch ev := e.(type) {
	case *kafka.Message:
		if ev.TopicPartition.Error != nil {
			return classify(topic, ev.TopicPartition.Error)
		}
		return nil
	case kafka.Error:
		return classify(topic, ev)
	default:
		return fmt.Errorf("unexpected delivery event for topic %s: %v", topic, e)
	}
}

func toKafkaHeaders(headers map[string]string) []kafka.Header {
	if len(headers) == 0 {
		return nil
	}
	return lo.MapToSlice(headers, func(key string, value string) kafka.Header {
		return kafka.Header{Key: key, Value: []byte(value)}
	})
}

// watchEvents drains client-level events so the events channel never fills up.
// It returns when the producer is closed.
func watchEvents(events chan kafka.Event, log *zap.Logger) {
	for e := range events {
		switch ev := e.(type) {
		case kafka.Error:
			if ev.IsFatal() {
				log.Error("fatal kafka producer error", zap.Error(ev))
			} else {
				log.Warn("kafka producer error", zap.Error(ev), zap.String("code", ev.Code().String()))
			}
		default:
			log.Debug("kafka producer event", zap.String("event", e.String()))
		}
	}
}
