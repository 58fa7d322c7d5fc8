package config

import (
	"fmt"
	"os"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	envAppEnv            = "APP_ENV"
	envAppServiceName    = "APP_SERVICE_NAME"
	envAppServiceVersion = "APP_SERVICE_VERSION"
	envAppInstanceID     = "APP_INSTANCE_ID"
)

const (
	defaultEnvironment    = "local"
	defaultServiceVersion = "unknown"
)

// AppConfig is the service identity read from the environment.
type AppConfig struct {
	ServiceName    string
	ServiceVersion string
	// Environment is the deployment environment, e.g. "local", "staging", "pro".
	Environment string
	// InstanceID distinguishes replicas of the same service. Empty means derive one from the host.
	InstanceID string
}

type appConfigOptions struct {
	static *AppConfig
}

// AppOption configures the app config module.
type AppOption func(*appConfigOptions)

// WithAppConfig supplies a static AppConfig instead of reading the environment.
func WithAppConfig(cfg AppConfig) AppOption {
	return func(o *appConfigOptions) {
		o.static = &cfg
	}
}

// NewAppConfigModule provides AppConfig.
//
// Environment variables:
//   - APP_SERVICE_NAME: required
//   - APP_SERVICE_VERSION: defaults to "unknown"
//   - APP_ENV: defaults to "local"
//   - APP_INSTANCE_ID: optional
func NewAppConfigModule(opts ...AppOption) fx.Option {
	o := &appConfigOptions{}
	for _, opt := range opts {
		opt(o)
	}

	provider := fx.Provide(newAppConfig)
	if o.static != nil {
		provider = fx.Supply(*o.static)
	}

	return fx.Module("appconfig",
		provider,
		fx.Invoke(func(logger *zap.Logger, conf AppConfig) {
			logger.Info("loaded application configuration",
				zap.String("service", conf.ServiceName),
				zap.String("version", conf.ServiceVersion),
				zap.String("environment", conf.Environment),
				zap.String("instanceId", conf.InstanceID),
			)
		}),
	)
}

func newAppConfig() (AppConfig, error) {
	serviceName := os.Getenv(envAppServiceName)
	if serviceName == "" {
		return AppConfig{}, fmt.Errorf("%s is required", envAppServiceName)
	}

	return AppConfig{
		ServiceName:    serviceName,
		ServiceVersion: getenvOr(envAppServiceVersion, defaultServiceVersion),
		Environment:    getenvOr(envAppEnv, defaultEnvironment),
		InstanceID:     os.Getenv(envAppInstanceID),
	}, nil
}

func getenvOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
