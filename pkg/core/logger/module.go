package logger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/Sokol111/ecommerce-event-publisher/pkg/core/config"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

type moduleOptions struct {
	config *Config
}

// Option configures the logging module.
type Option func(*moduleOptions)

// WithLoggerConfig supplies a static Config instead of reading the "logger" viper section.
func WithLoggerConfig(cfg Config) Option {
	return func(o *moduleOptions) {
		o.config = &cfg
	}
}

// NewZapLoggingModule provides a *zap.Logger tagged with the service identity
// and routes fx's own events through it.
func NewZapLoggingModule(opts ...Option) fx.Option {
	o := &moduleOptions{}
	for _, opt := range opts {
		opt(o)
	}

	configProvider := fx.Provide(newConfig)
	if o.config != nil {
		configProvider = fx.Supply(*o.config)
	}

	return fx.Options(
		configProvider,
		fx.Provide(provideLogger),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
	)
}

func provideLogger(lc fx.Lifecycle, conf Config, app config.AppConfig) (*zap.Logger, error) {
	logger, _, err := newLogger(conf, serviceFields(app)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return ignoreSyncError(logger.Sync())
		},
	})

	return logger, nil
}

func serviceFields(app config.AppConfig) []zap.Field {
	var fields []zap.Field
	if app.ServiceName != "" {
		fields = append(fields, zap.String("service", app.ServiceName))
	}
	if app.ServiceVersion != "" {
		fields = append(fields, zap.String("version", app.ServiceVersion))
	}
	if app.InstanceID != "" {
		fields = append(fields, zap.String("instance", app.InstanceID))
	}
	return fields
}

// ignoreSyncError drops the EINVAL/ENOTTY that Sync returns for stderr and terminals.
func ignoreSyncError(err error) error {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) && (errors.Is(pathErr.Err, syscall.EINVAL) || errors.Is(pathErr.Err, syscall.ENOTTY)) {
		return nil
	}
	return err
}
