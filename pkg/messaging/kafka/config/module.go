package config

import (
	"fmt"

	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type moduleOptions struct {
	config  *Config
	brokers string
}

// Option configures the Kafka config module.
type Option func(*moduleOptions)

// WithKafkaConfig provides a static Config (useful for tests).
// Defaults are still applied and the result is validated.
func WithKafkaConfig(cfg Config) Option {
	return func(opts *moduleOptions) {
		opts.config = &cfg
	}
}

// WithBrokers replaces only the broker list of the loaded Config. Every other setting still
// comes from the "kafka" section, which may then be absent.
func WithBrokers(brokers string) Option {
	return func(opts *moduleOptions) {
		opts.brokers = brokers
	}
}

// NewKafkaConfigModule provides Config loaded from the "kafka" viper subtree.
func NewKafkaConfigModule(opts ...Option) fx.Option {
	o := &moduleOptions{}
	for _, opt := range opts {
		opt(o)
	}

	if o.config != nil {
		static := *o.config
		if o.brokers != "" {
			static.Brokers = o.brokers
		}
		return fx.Provide(func(logger *zap.Logger) (Config, error) {
			return finalize(static, logger)
		})
	}
	if o.brokers != "" {
		brokers := o.brokers
		return fx.Provide(func(v *viper.Viper, logger *zap.Logger) (Config, error) {
			return loadConfig(v, brokers, logger)
		})
	}
	return fx.Provide(newConfig)
}

// New returns a validated Config for brokers with every other setting at its default.
func New(brokers string) (Config, error) {
	cfg := Config{Brokers: brokers}
	applyDefaults(&cfg)
	if err := validateConfig(&cfg); err != nil {
		return Config{}, fmt.Errorf("invalid kafka config: %w", err)
	}
	return cfg, nil
}

func newConfig(v *viper.Viper, logger *zap.Logger) (Config, error) {
	return loadConfig(v, "", logger)
}

// loadConfig reads the "kafka" section; a non-empty brokers wins over kafka.brokers.
func loadConfig(v *viper.Viper, brokers string, logger *zap.Logger) (Config, error) {
	var cfg Config
	sub := v.Sub("kafka")
	switch {
	case sub != nil:
		if err := sub.Unmarshal(&cfg); err != nil {
			return cfg, fmt.Errorf("failed to load kafka config: %w", err)
		}
	case brokers == "":
		return cfg, fmt.Errorf("failed to load kafka config: section 'kafka' is missing")
	}
	if brokers != "" {
		cfg.Brokers = brokers
	}
	return finalize(cfg, logger)
}

func finalize(cfg Config, logger *zap.Logger) (Config, error) {
	applyDefaults(&cfg)
	if err := validateConfig(&cfg); err != nil {
		return Config{}, fmt.Errorf("invalid kafka config: %w", err)
	}

	logger.Info("loaded kafka config",
		zap.String("brokers", cfg.Brokers),
		zap.Int("maxRetries", *cfg.Publisher.MaxRetries),
		zap.Duration("retryBackoff", cfg.Publisher.RetryBackoff),
		zap.Int("circuitBreakerThreshold", cfg.Publisher.CircuitBreakerThreshold),
		zap.Duration("circuitBreakerTimeout", cfg.Publisher.CircuitBreakerTimeout),
		zap.Bool("enableDLQ", *cfg.Publisher.EnableDLQ),
		zap.Bool("enableSanitization", *cfg.Publisher.EnableSanitization),
	)
	return cfg, nil
}
