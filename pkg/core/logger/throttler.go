package logger

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"
)

// LogThrottler demotes repeated log lines to DEBUG. Each key gets one line at the
// requested level per interval. Instances do not share limiters.
type LogThrottler struct {
	log      *zap.Logger
	limiters sync.Map // map[string]*rate.Limiter
	interval time.Duration
}

// NewLogThrottler returns a throttler allowing one line per key per interval.
// A zero interval means 5 minutes.
func NewLogThrottler(log *zap.Logger, interval time.Duration) *LogThrottler {
	if interval == 0 {
		interval = 5 * time.Minute
	}
	return &LogThrottler{
		log:      log,
		interval: interval,
	}
}

// Warn logs as WARN once per interval per key, DEBUG otherwise.
func (t *LogThrottler) Warn(key string, msg string, fields ...zap.Field) {
	t.logThrottled(zapcore.WarnLevel, key, msg, fields)
}

// Error logs as ERROR once per interval per key, DEBUG otherwise.
func (t *LogThrottler) Error(key string, msg string, fields ...zap.Field) {
	t.logThrottled(zapcore.ErrorLevel, key, msg, fields)
}

func (t *LogThrottler) logThrottled(level zapcore.Level, key, msg string, fields []zap.Field) {
	if !t.getLimiter(key).Allow() {
		level = zapcore.DebugLevel
	}
	t.log.Log(level, msg, fields...)
}

func (t *LogThrottler) getLimiter(key string) *rate.Limiter {
	if limiter, ok := t.limiters.Load(key); ok {
		return limiter.(*rate.Limiter)
	}

	limiter := rate.NewLimiter(rate.Every(t.interval), 1)
	actual, _ := t.limiters.LoadOrStore(key, limiter)
	return actual.(*rate.Limiter)
}
