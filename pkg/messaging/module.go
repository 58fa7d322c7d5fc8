package messaging

import (
	"github.com/Sokol111/ecommerce-event-publisher/pkg/messaging/kafka/config"
	"github.com/Sokol111/ecommerce-event-publisher/pkg/messaging/kafka/producer"
	"github.com/Sokol111/ecommerce-event-publisher/pkg/messaging/publisher"
	"go.uber.org/fx"
)

type messagingOptions struct {
	kafkaConfig *config.Config
	brokers     string
}

// MessagingOption is a functional option for configuring the messaging module.
type MessagingOption func(*messagingOptions)

// WithKafkaConfig provides a static Kafka Config instead of the "kafka" viper section.
func WithKafkaConfig(cfg config.Config) MessagingOption {
	return func(opts *messagingOptions) {
		opts.kafkaConfig = &cfg
	}
}

// WithBrokers overrides kafka.brokers and keeps every other setting from the config source.
func WithBrokers(brokers string) MessagingOption {
	return func(opts *messagingOptions) {
		opts.brokers = brokers
	}
}

// NewMessagingModule provides the kafka config, the producer client and the EventPublisher.
// It expects core.NewCoreModule; tracer and meter providers are picked up when present.
//
//	// Production - loads config from viper
//	messaging.NewMessagingModule()
//
//	// CLI or tests - static config
//	messaging.NewMessagingModule(
//	    messaging.WithKafkaConfig(config.Config{Brokers: "localhost:9092"}),
//	)
func NewMessagingModule(opts ...MessagingOption) fx.Option {
	cfg := &messagingOptions{}
	for _, opt := range opts {
		opt(cfg)
	}

	return fx.Options(
		kafkaConfigModule(cfg),
		producer.NewProducerModule(),
		publisher.NewPublisherModule(),
	)
}

func kafkaConfigModule(cfg *messagingOptions) fx.Option {
	var opts []config.Option
	if cfg.kafkaConfig != nil {
		opts = append(opts, config.WithKafkaConfig(*cfg.kafkaConfig))
	}
	if cfg.brokers != "" {
		opts = append(opts, config.WithBrokers(cfg.brokers))
	}
	return config.NewKafkaConfigModule(opts...)
}
