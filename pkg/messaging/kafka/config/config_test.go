package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func readYAML(t *testing.T, yamlConfig string) *viper.Viper {
	t.Helper()
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBufferString(yamlConfig)))
	return v
}

func TestNewConfig_ValidYAML(t *testing.T) {
	yamlConfig := `
kafka:
  brokers: "localhost:9092,localhost:9093"
  producer-config:
    readiness-timeout-seconds: 60
    fail-on-broker-error: true
    client-id: "orders-publisher"
    acks: "1"
    delivery-timeout: 15s
    flush-timeout: 3s
    properties:
      - "linger.ms=5"
      - "compression.type=snappy"
  publisher:
    max-retries: 5
    retry-backoff: 200ms
    max-backoff: 10s
    circuit-breaker-threshold: 7
    circuit-breaker-timeout: 30s
    enable-dlq: false
    enable-sanitization: false
    dlq-timeout: 2s
    instance-id: "orders-1"
    hostname: "node-a"
`

	cfg, err := newConfig(readYAML(t, yamlConfig), zap.NewNop())

	require.NoError(t, err)
	assert.Equal(t, "localhost:9092,localhost:9093", cfg.Brokers)

	assert.Equal(t, 60, cfg.ProducerConfig.ReadinessTimeoutSeconds)
	assert.True(t, cfg.ProducerConfig.FailOnBrokerError)
	assert.Equal(t, "orders-publisher", cfg.ProducerConfig.ClientID)
	assert.Equal(t, "1", cfg.ProducerConfig.Acks)
	assert.Equal(t, 15*time.Second, cfg.ProducerConfig.DeliveryTimeout)
	assert.Equal(t, 3*time.Second, cfg.ProducerConfig.FlushTimeout)
	assert.Equal(t, []string{"linger.ms=5", "compression.type=snappy"}, cfg.ProducerConfig.Properties)

	require.NotNil(t, cfg.Publisher.MaxRetries)
	assert.Equal(t, 5, *cfg.Publisher.MaxRetries)
	assert.Equal(t, 200*time.Millisecond, cfg.Publisher.RetryBackoff)
	assert.Equal(t, 10*time.Second, cfg.Publisher.MaxBackoff)
	assert.Equal(t, 7, cfg.Publisher.CircuitBreakerThreshold)
	assert.Equal(t, 30*time.Second, cfg.Publisher.CircuitBreakerTimeout)
	assert.False(t, *cfg.Publisher.EnableDLQ)
	assert.False(t, *cfg.Publisher.EnableSanitization)
	assert.Equal(t, 2*time.Second, cfg.Publisher.DLQTimeout)
	assert.Equal(t, "orders-1", cfg.Publisher.InstanceID)
	assert.Equal(t, "node-a", cfg.Publisher.Hostname)
}

func TestNewConfig_MinimalYAML(t *testing.T) {
	yamlConfig := `
kafka:
  brokers: "localhost:9092"
`

	cfg, err := newConfig(readYAML(t, yamlConfig), zap.NewNop())

	require.NoError(t, err)
	assert.Equal(t, "localhost:9092", cfg.Brokers)
	assert.Equal(t, defaultProducerReadinessTimeout, cfg.ProducerConfig.ReadinessTimeoutSeconds)
	assert.Equal(t, defaultDeliveryTimeout, cfg.ProducerConfig.DeliveryTimeout)
	assert.Equal(t, defaultFlushTimeout, cfg.ProducerConfig.FlushTimeout)
	assert.Equal(t, defaultMaxRetries, *cfg.Publisher.MaxRetries)
	assert.Equal(t, defaultRetryBackoff, cfg.Publisher.RetryBackoff)
	assert.Equal(t, defaultCircuitBreakerThreshold, cfg.Publisher.CircuitBreakerThreshold)
	assert.Equal(t, defaultCircuitBreakerTimeout, cfg.Publisher.CircuitBreakerTimeout)
	assert.True(t, *cfg.Publisher.EnableDLQ)
	assert.True(t, *cfg.Publisher.EnableSanitization)
}

func TestNewConfig_ZeroRetriesIsKept(t *testing.T) {
	yamlConfig := `
kafka:
  brokers: "localhost:9092"
  publisher:
    max-retries: 0
`

	cfg, err := newConfig(readYAML(t, yamlConfig), zap.NewNop())

	require.NoError(t, err)
	assert.Equal(t, 0, *cfg.Publisher.MaxRetries)
}

func TestNewConfig_MissingSection(t *testing.T) {
	_, err := newConfig(readYAML(t, "other: 1\n"), zap.NewNop())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "section 'kafka' is missing")
}

func TestLoadConfig_BrokersOverrideKeepsFileSettings(t *testing.T) {
	yamlConfig := `
kafka:
  brokers: "file-broker:9092"
  publisher:
    max-retries: 7
    circuit-breaker-threshold: 9
    enable-dlq: false
`

	cfg, err := loadConfig(readYAML(t, yamlConfig), "flag-broker:9092", zap.NewNop())

	require.NoError(t, err)
	assert.Equal(t, "flag-broker:9092", cfg.Brokers)
	assert.Equal(t, 7, *cfg.Publisher.MaxRetries)
	assert.Equal(t, 9, cfg.Publisher.CircuitBreakerThreshold)
	assert.False(t, *cfg.Publisher.EnableDLQ)
}

func TestLoadConfig_BrokersWithoutSection(t *testing.T) {
	cfg, err := loadConfig(readYAML(t, "other: 1\n"), "flag-broker:9092", zap.NewNop())

	require.NoError(t, err)
	assert.Equal(t, "flag-broker:9092", cfg.Brokers)
	assert.Equal(t, 3, *cfg.Publisher.MaxRetries)
	assert.True(t, *cfg.Publisher.EnableDLQ)
}

func TestNewConfig_InvalidYAML_MissingBrokers(t *testing.T) {
	yamlConfig := `
kafka:
  publisher:
    max-retries: 2
`

	_, err := newConfig(readYAML(t, yamlConfig), zap.NewNop())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "brokers cannot be empty")
}

func TestNewConfig_InvalidBackoffRelationship(t *testing.T) {
	yamlConfig := `
kafka:
  brokers: "localhost:9092"
  publisher:
    retry-backoff: 10s
    max-backoff: 5s
`

	_, err := newConfig(readYAML(t, yamlConfig), zap.NewNop())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be greater than max backoff")
}

func TestNew(t *testing.T) {
	cfg, err := New("broker:9092")
	require.NoError(t, err)
	assert.Equal(t, "broker:9092", cfg.Brokers)
	assert.Equal(t, defaultMaxRetries, *cfg.Publisher.MaxRetries)

	_, err = New(" ")
	assert.Error(t, err)
}

func TestDLQTopic(t *testing.T) {
	assert.Equal(t, "orders.created.dlq", DLQTopic("orders.created"))
}
