package publisher

import (
	"context"

	appconfig "github.com/Sokol111/ecommerce-event-publisher/pkg/core/config"
	"github.com/Sokol111/ecommerce-event-publisher/pkg/messaging/kafka/config"
	"github.com/Sokol111/ecommerce-event-publisher/pkg/messaging/kafka/producer"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type publisherParams struct {
	fx.In
	Lc             fx.Lifecycle
	Log            *zap.Logger
	Client         producer.Client
	Conf           config.Config
	AppConf        appconfig.AppConfig
	TracerProvider trace.TracerProvider `optional:"true"`
	MeterProvider  metric.MeterProvider `optional:"true"`
}

// NewPublisherModule provides *EventPublisher configured from the "kafka" section.
// The publisher is closed, and the producer flushed, when the application stops.
func NewPublisherModule() fx.Option {
	return fx.Provide(providePublisher)
}

func providePublisher(p publisherParams) (*EventPublisher, error) {
	opts := OptionsFromConfig(p.AppConf.ServiceName, p.Conf)
	if opts.InstanceID == "" {
		opts.InstanceID = p.AppConf.InstanceID
	}
	opts.TracerProvider = p.TracerProvider
	opts.MeterProvider = p.MeterProvider

	pub, err := New(p.Client, opts, p.Log)
	if err != nil {
		return nil, err
	}

	p.Lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return pub.Close(ctx)
		},
	})
	return pub, nil
}
