package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const envConfigFile = "CONFIG_FILE"

type viperOptions struct {
	configPath   *string
	noConfigFile bool
}

// ViperOption configures the viper module.
type ViperOption func(*viperOptions)

// WithConfigPath reads the given file instead of resolving CONFIG_FILE.
func WithConfigPath(path string) ViperOption {
	return func(o *viperOptions) {
		o.configPath = &path
	}
}

// WithoutConfigFile provides a viper instance backed only by environment variables.
func WithoutConfigFile() ViperOption {
	return func(o *viperOptions) {
		o.noConfigFile = true
	}
}

// FilePath is the configuration file to read. Empty means none.
type FilePath string

// NewViperModule provides *viper.Viper. Environment variables override file values,
// with "." and "-" in keys mapped to "_" (kafka.publisher.max-retries -> KAFKA_PUBLISHER_MAX_RETRIES).
func NewViperModule(opts ...ViperOption) fx.Option {
	o := &viperOptions{}
	for _, opt := range opts {
		opt(o)
	}

	return fx.Module("viper",
		fx.Supply(resolveConfigPath(o)),
		fx.Provide(newViper),
		// Logged from an invoke: the logger config itself is read from viper.
		fx.Invoke(func(logger *zap.Logger, configFile FilePath, v *viper.Viper) {
			if configFile == "" {
				logger.Debug("no config file specified, reading environment only")
			}
			logger.Info("configuration loaded",
				zap.String("configFile", v.ConfigFileUsed()),
				zap.Strings("configKeys", v.AllKeys()),
			)
		}),
	)
}

func resolveConfigPath(o *viperOptions) FilePath {
	switch {
	case o.noConfigFile:
		return ""
	case o.configPath != nil:
		return FilePath(*o.configPath)
	default:
		return FilePath(os.Getenv(envConfigFile))
	}
}

func newViper(configFile FilePath) (*viper.Viper, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if configFile == "" {
		return v, nil
	}

	v.SetConfigFile(string(configFile))
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file [%s]: %w", configFile, err)
	}

	return v, nil
}
