package config

import (
	"fmt"
	"strings"
)

// validateConfig validates the entire Kafka configuration
func validateConfig(cfg *Config) error {
	if err := validateBrokers(cfg); err != nil {
		return err
	}
	if err := validateProducerConfig(&cfg.ProducerConfig); err != nil {
		return err
	}
	return validatePublisherConfig(&cfg.Publisher)
}

// validateBrokers validates Kafka brokers configuration
func validateBrokers(cfg *Config) error {
	if strings.TrimSpace(cfg.Brokers) == "" {
		return fmt.Errorf("kafka brokers cannot be empty")
	}
	return nil
}

// validateProducerConfig validates producer configuration
func validateProducerConfig(cfg *ProducerConfig) error {
	if cfg.ReadinessTimeoutSeconds > maxReadinessTimeout {
		return fmt.Errorf("producer readiness timeout cannot exceed %d seconds, got: %d",
			maxReadinessTimeout, cfg.ReadinessTimeoutSeconds)
	}
	switch cfg.Acks {
	case "all", "-1", "1", "0":
	default:
		return fmt.Errorf("producer acks must be one of 'all', '-1', '1', '0', got: %s", cfg.Acks)
	}
	if cfg.DeliveryTimeout < minDeliveryTimeout || cfg.DeliveryTimeout > maxDeliveryTimeout {
		return fmt.Errorf("producer delivery timeout must be between %v and %v, got: %v",
			minDeliveryTimeout, maxDeliveryTimeout, cfg.DeliveryTimeout)
	}
	if cfg.FlushTimeout < 0 || cfg.FlushTimeout > maxFlushTimeout {
		return fmt.Errorf("producer flush timeout must be between 0 and %v, got: %v",
			maxFlushTimeout, cfg.FlushTimeout)
	}
	for i, property := range cfg.Properties {
		key, _, ok := strings.Cut(property, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return fmt.Errorf("producer properties[%d]: expected key=value, got: %q", i, property)
		}
	}
	return nil
}

// validatePublisherConfig validates retry, breaker and DLQ settings
func validatePublisherConfig(cfg *PublisherConfig) error {
	if cfg.MaxRetries != nil && (*cfg.MaxRetries < minMaxRetries || *cfg.MaxRetries > maxMaxRetries) {
		return fmt.Errorf("publisher max retries must be between %d and %d, got: %d",
			minMaxRetries, maxMaxRetries, *cfg.MaxRetries)
	}
	if cfg.RetryBackoff < minRetryBackoff || cfg.RetryBackoff > maxRetryBackoff {
		return fmt.Errorf("publisher retry backoff must be between %v and %v, got: %v",
			minRetryBackoff, maxRetryBackoff, cfg.RetryBackoff)
	}
	if cfg.MaxBackoff < cfg.RetryBackoff {
		return fmt.Errorf("publisher retry backoff (%v) cannot be greater than max backoff (%v)",
			cfg.RetryBackoff, cfg.MaxBackoff)
	}
	if cfg.CircuitBreakerThreshold < minCircuitBreakerThreshold || cfg.CircuitBreakerThreshold > maxCircuitBreakerThreshold {
		return fmt.Errorf("publisher circuit breaker threshold must be between %d and %d, got: %d",
			minCircuitBreakerThreshold, maxCircuitBreakerThreshold, cfg.CircuitBreakerThreshold)
	}
	if cfg.CircuitBreakerTimeout < minCircuitBreakerTimeout || cfg.CircuitBreakerTimeout > maxCircuitBreakerTimeout {
		return fmt.Errorf("publisher circuit breaker timeout must be between %v and %v, got: %v",
			minCircuitBreakerTimeout, maxCircuitBreakerTimeout, cfg.CircuitBreakerTimeout)
	}
	if cfg.DLQTimeout < minDLQTimeout || cfg.DLQTimeout > maxDLQTimeout {
		return fmt.Errorf("publisher DLQ timeout must be between %v and %v, got: %v",
			minDLQTimeout, maxDLQTimeout, cfg.DLQTimeout)
	}
	return nil
}
