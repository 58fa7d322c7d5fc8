package publisher

import (
	"context"
	"testing"

	"github.com/Sokol111/ecommerce-event-publisher/pkg/core"
	appconfig "github.com/Sokol111/ecommerce-event-publisher/pkg/core/config"
	"github.com/Sokol111/ecommerce-event-publisher/pkg/core/logger"
	"github.com/Sokol111/ecommerce-event-publisher/pkg/messaging/kafka/config"
	"github.com/Sokol111/ecommerce-event-publisher/pkg/messaging/kafka/events"
	"github.com/Sokol111/ecommerce-event-publisher/pkg/messaging/kafka/producer"
	"github.com/Sokol111/ecommerce-event-publisher/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap/zapcore"
)

func testCoreModule() fx.Option {
	return core.NewCoreModule(
		core.WithAppConfig(appconfig.AppConfig{ServiceName: "orders-service", ServiceVersion: "1.0.0", Environment: "test", InstanceID: "orders-0"}),
		core.WithLoggerConfig(logger.Config{Level: zapcore.ErrorLevel, StacktraceLevel: zapcore.FatalLevel}),
		core.WithoutEnvFile(),
		core.WithoutConfigFile(),
	)
}

func TestPublisherModule_Lifecycle(t *testing.T) {
	// Given: the publisher wired through fx over a fake client
	client := &fakeClient{}
	var pub *EventPublisher

	app := fxtest.New(t,
		testCoreModule(),
		observability.NewObservabilityModule(observability.WithoutTracing(), observability.WithoutMetrics()),
		config.NewKafkaConfigModule(config.WithKafkaConfig(config.Config{Brokers: "localhost:9092"})),
		fx.Provide(func() producer.Client { return client }),
		NewPublisherModule(),
		fx.Populate(&pub),
	)

	// When: the app runs and publishes
	app.RequireStart()
	ok, err := pub.Publish(context.Background(), "orders.created", events.Map{"order_id": "42"})

	// Then: the event is delivered with the app identity, and stop closes the client
	require.NoError(t, err)
	assert.True(t, ok)
	envelope := decodeValue(t, client.messagesTo("orders.created")[0].Value)
	assert.Equal(t, "orders-service", envelope["source"].(map[string]any)["service"])
	assert.Equal(t, "orders-0", envelope["source"].(map[string]any)["instance_id"])

	app.RequireStop()
	assert.Equal(t, 1, client.closeCalls)
	assert.Equal(t, 1, client.flushCalls)
}

func TestPublisherModule_Validate(t *testing.T) {
	err := fx.ValidateApp(
		testCoreModule(),
		config.NewKafkaConfigModule(config.WithKafkaConfig(config.Config{Brokers: "localhost:9092"})),
		producer.NewProducerModule(),
		NewPublisherModule(),
		fx.Invoke(func(*EventPublisher) {}),
	)

	assert.NoError(t, err)
}
