package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_FromViper(t *testing.T) {
	// Given: an observability section
	v := viper.New()
	v.Set("observability.otel-collector-endpoint", "collector:4317")
	v.Set("observability.tracing.enabled", true)
	v.Set("observability.tracing.sample-ratio", 0.25)
	v.Set("observability.metrics.enabled", true)
	v.Set("observability.metrics.interval", "30s")

	// When: loading
	cfg, err := loadConfig(&configOptions{}, v)

	// Then: values are decoded
	require.NoError(t, err)
	assert.Equal(t, "collector:4317", cfg.OtelCollectorEndpoint)
	assert.True(t, cfg.Tracing.Enabled)
	assert.InDelta(t, 0.25, cfg.Tracing.SampleRatio, 1e-9)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Metrics.Interval)
}

func TestLoadConfig_MissingSectionUsesDefaults(t *testing.T) {
	cfg, err := loadConfig(&configOptions{}, viper.New())

	require.NoError(t, err)
	assert.False(t, cfg.Tracing.Enabled)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, DefaultMetricsInterval, cfg.Metrics.Interval)
	assert.InDelta(t, DefaultSampleRatio, cfg.Tracing.SampleRatio, 1e-9)
}

func TestLoadConfig_DisableOptionsOverrideStaticConfig(t *testing.T) {
	opts := &configOptions{}
	for _, opt := range []Option{
		WithConfig(Config{Tracing: TracingConfig{Enabled: true}, Metrics: MetricsConfig{Enabled: true}}),
		WithDisableTracing(),
		WithDisableMetrics(),
	} {
		opt(opts)
	}

	cfg, err := loadConfig(opts, viper.New())

	require.NoError(t, err)
	assert.False(t, cfg.Tracing.Enabled)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoadConfig_InvalidSampleRatio(t *testing.T) {
	opts := &configOptions{config: &Config{Tracing: TracingConfig{SampleRatio: 1.5}}}

	_, err := loadConfig(opts, viper.New())

	assert.ErrorContains(t, err, "sample-ratio")
}
