package config

import (
	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewDotEnvModule loads environment variables from the given .env files (".env" when none
// are given). Missing files are skipped and variables already set are not overridden.
// Loading happens when the module is constructed, before any provider reads the environment.
func NewDotEnvModule(paths ...string) fx.Option {
	if len(paths) == 0 {
		paths = []string{".env"}
	}

	loaded := loadDotEnv(paths)

	return fx.Module("dotenv",
		fx.Invoke(func(logger *zap.Logger) {
			logger.Debug("dotenv files", zap.Strings("requested", paths), zap.Strings("loaded", loaded))
		}),
	)
}

func loadDotEnv(paths []string) []string {
	var loaded []string
	for _, path := range paths {
		if err := godotenv.Load(path); err == nil {
			loaded = append(loaded, path)
		}
	}
	return loaded
}
