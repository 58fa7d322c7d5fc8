package config

import "time"

const (
	// Default values.
	defaultProducerReadinessTimeout = 30
	defaultAcks                     = "all"
	defaultDeliveryTimeout          = 30 * time.Second
	defaultFlushTimeout             = 10 * time.Second
	defaultMaxRetries               = 3
	defaultRetryBackoff             = 1 * time.Second
	defaultMaxBackoff               = 5 * time.Minute
	defaultCircuitBreakerThreshold  = 5
	defaultCircuitBreakerTimeout    = 60 * time.Second
	defaultDLQTimeout               = 5 * time.Second

	// Validation bounds.
	maxReadinessTimeout        = 600 // 10 minutes in seconds
	minDeliveryTimeout         = 1 * time.Second
	maxDeliveryTimeout         = 10 * time.Minute
	maxFlushTimeout            = 5 * time.Minute
	minMaxRetries              = 0
	maxMaxRetries              = 20
	minRetryBackoff            = 1 * time.Millisecond
	maxRetryBackoff            = 1 * time.Minute
	minCircuitBreakerThreshold = 1
	maxCircuitBreakerThreshold = 1000
	minCircuitBreakerTimeout   = 1 * time.Second
	maxCircuitBreakerTimeout   = 1 * time.Hour
	minDLQTimeout              = 100 * time.Millisecond
	maxDLQTimeout              = 1 * time.Minute
)

// DLQSuffix is appended to a topic to derive its dead-letter topic.
const DLQSuffix = ".dlq"

// DLQTopic returns the dead-letter topic for topic.
func DLQTopic(topic string) string {
	return topic + DLQSuffix
}
