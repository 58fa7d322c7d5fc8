package config

// applyDefaults applies default values to the configuration
func applyDefaults(cfg *Config) {
	applyProducerDefaults(&cfg.ProducerConfig)
	applyPublisherDefaults(&cfg.Publisher)
}

func applyProducerDefaults(cfg *ProducerConfig) {
	if cfg.ReadinessTimeoutSeconds == 0 {
		cfg.ReadinessTimeoutSeconds = defaultProducerReadinessTimeout
	}
	if cfg.Acks == "" {
		cfg.Acks = defaultAcks
	}
	if cfg.DeliveryTimeout == 0 {
		cfg.DeliveryTimeout = defaultDeliveryTimeout
	}
	if cfg.FlushTimeout == 0 {
		cfg.FlushTimeout = defaultFlushTimeout
	}
}

func applyPublisherDefaults(cfg *PublisherConfig) {
	// Zero retries is a valid setting, so only a missing value gets the default
	if cfg.MaxRetries == nil {
		maxRetries := defaultMaxRetries
		cfg.MaxRetries = &maxRetries
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = defaultRetryBackoff
	}
	if cfg.MaxBackoff == 0 {
		cfg.MaxBackoff = defaultMaxBackoff
	}
	if cfg.CircuitBreakerThreshold == 0 {
		cfg.CircuitBreakerThreshold = defaultCircuitBreakerThreshold
	}
	if cfg.CircuitBreakerTimeout == 0 {
		cfg.CircuitBreakerTimeout = defaultCircuitBreakerTimeout
	}
	if cfg.EnableDLQ == nil {
		enabled := true
		cfg.EnableDLQ = &enabled
	}
	if cfg.EnableSanitization == nil {
		enabled := true
		cfg.EnableSanitization = &enabled
	}
	if cfg.DLQTimeout == 0 {
		cfg.DLQTimeout = defaultDLQTimeout
	}
}
