package logger

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// Config controls how the zap logger is built.
type Config struct {
	// Level is the minimum enabled level.
	Level zapcore.Level `mapstructure:"level"`

	// Development switches to console encoding; production uses JSON.
	Development bool `mapstructure:"development"`

	// OutputPaths defaults to stderr.
	OutputPaths []string `mapstructure:"outputPaths"`

	// ErrorOutputPaths receives internal logger errors. Defaults to stderr.
	ErrorOutputPaths []string `mapstructure:"errorOutputPaths"`

	// StacktraceLevel is the level from which stacktraces are attached. Defaults to error.
	StacktraceLevel zapcore.Level `mapstructure:"stacktraceLevel"`
}

// DefaultConfig is used when the "logger" section is absent.
func DefaultConfig() Config {
	return Config{
		Level:           zapcore.InfoLevel,
		StacktraceLevel: zapcore.ErrorLevel,
	}
}

func (c Config) Validate() error {
	for name, paths := range map[string][]string{
		"outputPaths":      c.OutputPaths,
		"errorOutputPaths": c.ErrorOutputPaths,
	} {
		for i, path := range paths {
			if strings.TrimSpace(path) == "" {
				return fmt.Errorf("%s[%d] cannot be empty or whitespace", name, i)
			}
		}
	}
	return nil
}

// rawConfig mirrors Config with levels kept as text, since viper has no decode hook for zapcore.Level.
type rawConfig struct {
	Level            string   `mapstructure:"level"`
	Development      bool     `mapstructure:"development"`
	OutputPaths      []string `mapstructure:"outputPaths"`
	ErrorOutputPaths []string `mapstructure:"errorOutputPaths"`
	StacktraceLevel  string   `mapstructure:"stacktraceLevel"`
}

func newConfig(v *viper.Viper) (Config, error) {
	cfg := DefaultConfig()

	sub := v.Sub("logger")
	if sub == nil {
		return cfg, nil
	}

	var raw rawConfig
	if err := sub.Unmarshal(&raw); err != nil {
		return Config{}, fmt.Errorf("failed to load logger config: %w", err)
	}

	var err error
	if cfg.Level, err = parseLevel(raw.Level, cfg.Level); err != nil {
		return Config{}, fmt.Errorf("invalid log level '%s': %w", raw.Level, err)
	}
	if cfg.StacktraceLevel, err = parseLevel(raw.StacktraceLevel, cfg.StacktraceLevel); err != nil {
		return Config{}, fmt.Errorf("invalid stacktrace level '%s': %w", raw.StacktraceLevel, err)
	}
	cfg.Development = raw.Development
	cfg.OutputPaths = raw.OutputPaths
	cfg.ErrorOutputPaths = raw.ErrorOutputPaths

	return cfg, nil
}

func parseLevel(text string, fallback zapcore.Level) (zapcore.Level, error) {
	if text == "" {
		return fallback, nil
	}
	return zapcore.ParseLevel(text)
}
