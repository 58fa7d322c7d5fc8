// Package observability wires OpenTelemetry tracing and metrics.
//
//	// Tracing and metrics as configured under "observability"
//	observability.NewObservabilityModule()
//
//	// Tests
//	observability.NewObservabilityModule(
//	    observability.WithoutTracing(),
//	    observability.WithoutMetrics(),
//	)
package observability

import (
	"github.com/Sokol111/ecommerce-event-publisher/pkg/observability/config"
	"github.com/Sokol111/ecommerce-event-publisher/pkg/observability/metrics"
	"github.com/Sokol111/ecommerce-event-publisher/pkg/observability/tracing"
	"go.uber.org/fx"
)

type observabilityOptions struct {
	configOpts []config.Option
}

// Option configures the observability module.
type Option func(*observabilityOptions)

// WithConfig supplies a static observability Config.
func WithConfig(cfg config.Config) Option {
	return func(o *observabilityOptions) {
		o.configOpts = append(o.configOpts, config.WithConfig(cfg))
	}
}

// WithoutTracing provides a no-op TracerProvider.
func WithoutTracing() Option {
	return func(o *observabilityOptions) {
		o.configOpts = append(o.configOpts, config.WithDisableTracing())
	}
}

// WithoutMetrics provides a no-op MeterProvider.
func WithoutMetrics() Option {
	return func(o *observabilityOptions) {
		o.configOpts = append(o.configOpts, config.WithDisableMetrics())
	}
}

// NewObservabilityModule provides trace.TracerProvider and metric.MeterProvider.
func NewObservabilityModule(opts ...Option) fx.Option {
	o := &observabilityOptions{}
	for _, opt := range opts {
		opt(o)
	}

	return fx.Options(
		config.NewObservabilityConfigModule(o.configOpts...),
		tracing.NewTracingModule(),
		metrics.NewMetricsModule(),
	)
}
