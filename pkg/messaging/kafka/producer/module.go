package producer

import (
	"context"

	"github.com/Sokol111/ecommerce-event-publisher/pkg/messaging/kafka/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewProducerModule provides the Kafka Client. Brokers are awaited on application start.
// The client is closed by its owner (the event publisher), not by this module.
func NewProducerModule() fx.Option {
	return fx.Provide(
		provideClient,
	)
}

func provideClient(lc fx.Lifecycle, log *zap.Logger, conf config.Config) (Client, error) {
	log = log.With(zap.String("component", "producer"))

	p, err := newKafkaProducer(conf)
	if err != nil {
		return nil, err
	}

	go watchEvents(p.Events(), log)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return waitForBrokers(ctx, p, log,
				conf.ProducerConfig.ReadinessTimeoutSeconds,
				conf.ProducerConfig.FailOnBrokerError,
			)
		},
	})

	return newKafkaClient(p, conf.ProducerConfig.DeliveryTimeout, log), nil
}
