package config

import "time"

const (
	DefaultMetricsInterval = 10 * time.Second
	DefaultSampleRatio     = 1.0

	// DefaultShutdownTimeout bounds exporter shutdown on application stop.
	DefaultShutdownTimeout = 5 * time.Second

	DefaultRuntimeStatsInterval = time.Second
)

// Config holds the "observability" section.
type Config struct {
	// OtelCollectorEndpoint is the OTLP gRPC endpoint (host:port). Tracing runs locally when empty.
	OtelCollectorEndpoint string        `mapstructure:"otel-collector-endpoint"`
	Tracing               TracingConfig `mapstructure:"tracing"`
	Metrics               MetricsConfig `mapstructure:"metrics"`
}

type TracingConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// SampleRatio applies to root spans; children follow their parent.
	SampleRatio float64 `mapstructure:"sample-ratio"`
}

type MetricsConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}
