package config

import "time"

// Config represents the Kafka configuration of the event publisher.
type Config struct {
	Brokers        string          `mapstructure:"brokers"`         // Comma-separated list of Kafka broker addresses (e.g., "localhost:9092,localhost:9093")
	ProducerConfig ProducerConfig  `mapstructure:"producer-config"` // Broker client settings
	Publisher      PublisherConfig `mapstructure:"publisher"`       // Retry, circuit breaker, DLQ and sanitization settings
}

// ProducerConfig represents configuration for the underlying Kafka producer.
type ProducerConfig struct {
	ReadinessTimeoutSeconds int           `mapstructure:"readiness-timeout-seconds"` // Timeout in seconds for waiting brokers readiness (0 = no timeout, max 600s, default 30s)
	FailOnBrokerError       bool          `mapstructure:"fail-on-broker-error"`      // Whether to fail application startup if brokers are not available (default false)
	ClientID                string        `mapstructure:"client-id"`                 // Kafka client.id (defaults to the publisher instance id)
	Acks                    string        `mapstructure:"acks"`                      // Required acknowledgements: "all", "1" or "0" (default "all")
	DeliveryTimeout         time.Duration `mapstructure:"delivery-timeout"`          // Max wait for a delivery report per attempt (1s-10m, default 30s)
	FlushTimeout            time.Duration `mapstructure:"flush-timeout"`             // Max time to drain queued messages on close (0-5m, default 10s)
	Properties              []string      `mapstructure:"properties"`                // Extra librdkafka properties as "key=value" entries
}

// PublisherConfig represents configuration for the resilient publishing pipeline.
type PublisherConfig struct {
	MaxRetries              *int          `mapstructure:"max-retries"`               // Retries after the first attempt (0-20, default 3)
	RetryBackoff            time.Duration `mapstructure:"retry-backoff"`             // Base backoff, doubled after each retry (1ms-1m, default 1s)
	MaxBackoff              time.Duration `mapstructure:"max-backoff"`               // Cap for a single backoff sleep (default 5m, must be >= retry-backoff)
	CircuitBreakerThreshold int           `mapstructure:"circuit-breaker-threshold"` // Consecutive exhausted publishes that open the breaker (1-1000, default 5)
	CircuitBreakerTimeout   time.Duration `mapstructure:"circuit-breaker-timeout"`   // Cooldown after the last failure before a trial publish (1s-1h, default 60s)
	EnableDLQ               *bool         `mapstructure:"enable-dlq"`                // Route exhausted events to "<topic>.dlq" (default true)
	EnableSanitization      *bool         `mapstructure:"enable-sanitization"`       // Mask secrets in produced payloads (default true)
	DLQTimeout              time.Duration `mapstructure:"dlq-timeout"`               // Timeout of the single DLQ delivery attempt (100ms-1m, default 5s)
	InstanceID              string        `mapstructure:"instance-id"`               // Producer instance id in the envelope source (defaults to "<hostname>-<pid>")
	Hostname                string        `mapstructure:"hostname"`                  // Hostname in the envelope source (defaults to os.Hostname())
}
