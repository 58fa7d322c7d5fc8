package publisher

import (
	"fmt"
	"os"
	"time"

	"github.com/Sokol111/ecommerce-event-publisher/pkg/messaging/kafka/config"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultMaxRetries              = 3
	defaultRetryBackoff            = time.Second
	defaultMaxBackoff              = 5 * time.Minute
	defaultCircuitBreakerThreshold = 5
	defaultCircuitBreakerTimeout   = 60 * time.Second
	defaultDLQTimeout              = 5 * time.Second
	defaultFlushTimeout            = 10 * time.Second
)

// Options configures an EventPublisher. Start from DefaultOptions or OptionsFromConfig;
// zero durations are replaced by their defaults.
type Options struct {
	ServiceName string
	// InstanceID defaults to "<hostname>-<pid>".
	InstanceID string
	// Hostname defaults to os.Hostname(); it is omitted from the envelope when unknown.
	Hostname string

	MaxRetries   int
	RetryBackoff time.Duration
	MaxBackoff   time.Duration

	CircuitBreakerThreshold int
	CircuitBreakerTimeout   time.Duration

	EnableDLQ          bool
	EnableSanitization bool
	DLQTimeout         time.Duration

	// FlushTimeout bounds Close: waiting for in-flight publishes and draining the producer queue.
	FlushTimeout time.Duration

	// TracerProvider and MeterProvider default to the otel globals.
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// DefaultOptions returns options with retries, breaker, DLQ and sanitization enabled.
func DefaultOptions(serviceName string) Options {
	return Options{
		ServiceName:             serviceName,
		MaxRetries:              defaultMaxRetries,
		RetryBackoff:            defaultRetryBackoff,
		MaxBackoff:              defaultMaxBackoff,
		CircuitBreakerThreshold: defaultCircuitBreakerThreshold,
		CircuitBreakerTimeout:   defaultCircuitBreakerTimeout,
		EnableDLQ:               true,
		EnableSanitization:      true,
		DLQTimeout:              defaultDLQTimeout,
		FlushTimeout:            defaultFlushTimeout,
	}
}

// OptionsFromConfig maps a loaded kafka Config onto Options.
func OptionsFromConfig(serviceName string, conf config.Config) Options {
	opts := DefaultOptions(serviceName)
	pub := conf.Publisher

	opts.InstanceID = pub.InstanceID
	opts.Hostname = pub.Hostname
	if pub.MaxRetries != nil {
		opts.MaxRetries = *pub.MaxRetries
	}
	opts.RetryBackoff = pub.RetryBackoff
	opts.MaxBackoff = pub.MaxBackoff
	opts.CircuitBreakerThreshold = pub.CircuitBreakerThreshold
	opts.CircuitBreakerTimeout = pub.CircuitBreakerTimeout
	if pub.EnableDLQ != nil {
		opts.EnableDLQ = *pub.EnableDLQ
	}
	if pub.EnableSanitization != nil {
		opts.EnableSanitization = *pub.EnableSanitization
	}
	opts.DLQTimeout = pub.DLQTimeout
	opts.FlushTimeout = conf.ProducerConfig.FlushTimeout
	return opts
}

// normalize fills in identity and defaults and validates the result.
func (o *Options) normalize() error {
	if o.ServiceName == "" {
		return fmt.Errorf("publisher options: service name is required")
	}
	if o.MaxRetries < 0 {
		return fmt.Errorf("publisher options: max retries cannot be negative, got: %d", o.MaxRetries)
	}
	if o.CircuitBreakerThreshold < 0 {
		return fmt.Errorf("publisher options: circuit breaker threshold cannot be negative, got: %d", o.CircuitBreakerThreshold)
	}

	if o.Hostname == "" {
		if hostname, err := os.Hostname(); err == nil {
			o.Hostname = hostname
		}
	}
	if o.InstanceID == "" {
		o.InstanceID = defaultInstanceID(o.Hostname)
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = defaultRetryBackoff
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = defaultMaxBackoff
	}
	if o.MaxBackoff < o.RetryBackoff {
		return fmt.Errorf("publisher options: retry backoff (%v) cannot be greater than max backoff (%v)",
			o.RetryBackoff, o.MaxBackoff)
	}
	if o.CircuitBreakerThreshold == 0 {
		o.CircuitBreakerThreshold = defaultCircuitBreakerThreshold
	}
	if o.CircuitBreakerTimeout <= 0 {
		o.CircuitBreakerTimeout = defaultCircuitBreakerTimeout
	}
	if o.DLQTimeout <= 0 {
		o.DLQTimeout = defaultDLQTimeout
	}
	if o.FlushTimeout <= 0 {
		o.FlushTimeout = defaultFlushTimeout
	}
	if o.TracerProvider == nil {
		o.TracerProvider = otel.GetTracerProvider()
	}
	if o.MeterProvider == nil {
		o.MeterProvider = otel.GetMeterProvider()
	}
	return nil
}

func defaultInstanceID(hostname string) string {
	if hostname == "" {
		return fmt.Sprintf("instance-%d", os.Getpid())
	}
	return fmt.Sprintf("%s-%d", hostname, os.Getpid())
}

type publishOptions struct {
	correlationID uuid.UUID
	causationID   uuid.UUID
	metadata      map[string]string
	topic         string
	partitionKey  string
}

// PublishOption customizes a single Publish call.
type PublishOption func(*publishOptions)

// WithCorrelationID continues an existing causal chain instead of starting a new one.
func WithCorrelationID(id uuid.UUID) PublishOption {
	return func(o *publishOptions) { o.correlationID = id }
}

// WithCausationID records the event that directly caused this one.
func WithCausationID(id uuid.UUID) PublishOption {
	return func(o *publishOptions) { o.causationID = id }
}

// WithMetadata attaches free-form context to the envelope.
func WithMetadata(metadata map[string]string) PublishOption {
	return func(o *publishOptions) { o.metadata = metadata }
}

// WithTopic overrides the default topic, which is the event type.
func WithTopic(topic string) PublishOption {
	return func(o *publishOptions) { o.topic = topic }
}

// WithPartitionKey sets the message key. Events with the same key keep their relative order.
func WithPartitionKey(key string) PublishOption {
	return func(o *publishOptions) { o.partitionKey = key }
}

func newPublishOptions(opts []PublishOption) publishOptions {
	var o publishOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
