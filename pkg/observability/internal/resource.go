package internal

import (
	"context"

	appconfig "github.com/Sokol111/ecommerce-event-publisher/pkg/core/config"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
)

// NewResource describes this process to the collector.
func NewResource(ctx context.Context, appCfg appconfig.AppConfig) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{
		semconv.ServiceNameKey.String(appCfg.ServiceName),
		semconv.ServiceVersionKey.String(appCfg.ServiceVersion),
		semconv.DeploymentEnvironmentNameKey.String(appCfg.Environment),
	}
	if appCfg.InstanceID != "" {
		attrs = append(attrs, semconv.ServiceInstanceIDKey.String(appCfg.InstanceID))
	}

	return resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithProcess(),
		resource.WithOS(),
		resource.WithHost(),
		resource.WithAttributes(attrs...),
	)
}
