package publisher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Sokol111/ecommerce-event-publisher/pkg/core/logger"
	"github.com/Sokol111/ecommerce-event-publisher/pkg/messaging/kafka/config"
	"github.com/Sokol111/ecommerce-event-publisher/pkg/messaging/kafka/events"
	"github.com/Sokol111/ecommerce-event-publisher/pkg/messaging/kafka/producer"
	"github.com/Sokol111/ecommerce-event-publisher/pkg/messaging/kafka/serde"
	"github.com/Sokol111/ecommerce-event-publisher/pkg/observability/tracing"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// EventPublisher wraps events in envelopes and delivers them with retries, a circuit breaker
// and dead-letter routing. It is safe for concurrent use.
//
// Publish reports false without an error when the broker stayed unavailable after all retries;
// the event has then been offered to "<topic>.dlq" if DLQ routing is enabled.
// Errors are returned for bad input, an open breaker, broker rejections, cancellation and use after Close.
type EventPublisher struct {
	opts       Options
	client     producer.Client
	builder    *events.Builder
	serializer serde.Serializer
	breaker    *circuitBreaker
	retry      *retryExecutor
	dlq        *dlqRouter
	metrics    *metricsRecorder
	tracer     *publishTracer
	throttler  *logger.LogThrottler
	log        *zap.Logger

	// recordMu makes a breaker outcome and its counters one step for Metrics.
	recordMu sync.Mutex

	mu       sync.RWMutex
	closed   bool
	inflight sync.WaitGroup

	// shutdownCtx is cancelled when Close gives up waiting for in-flight publishes.
	shutdownCtx context.Context
	shutdown    context.CancelFunc

	closeOnce sync.Once
	closeErr  error
}

// New creates a publisher on top of an existing client. The publisher owns the client
// and closes it in Close.
func New(client producer.Client, opts Options, log *zap.Logger) (*EventPublisher, error) {
	if err := opts.normalize(); err != nil {
		return nil, err
	}
	log = log.With(zap.String("component", "event-publisher"))

	metrics, err := newMetricsRecorder(opts.MeterProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to create publisher metrics: %w", err)
	}

	source := events.Source{
		Service:    opts.ServiceName,
		InstanceID: opts.InstanceID,
	}
	if opts.Hostname != "" {
		source.Hostname = lo.ToPtr(opts.Hostname)
	}

	var sanitizer *serde.Sanitizer
	if opts.EnableSanitization {
		sanitizer = serde.NewSanitizer()
	}

	tracer := newPublishTracer(opts.TracerProvider)
	shutdownCtx, shutdown := context.WithCancel(context.Background())

	p := &EventPublisher{
		opts:        opts,
		client:      client,
		builder:     events.NewBuilder(source),
		serializer:  serde.NewJSONSerializer(sanitizer),
		retry:       newRetryExecutor(client, opts.MaxRetries, opts.RetryBackoff, opts.MaxBackoff, log),
		dlq:         newDLQRouter(client, source, opts.DLQTimeout, tracer, log),
		metrics:     metrics,
		tracer:      tracer,
		throttler:   logger.NewLogThrottler(log, time.Minute),
		log:         log,
		shutdownCtx: shutdownCtx,
		shutdown:    shutdown,
	}
	p.breaker = newCircuitBreaker(breakerSettings{
		threshold:     opts.CircuitBreakerThreshold,
		cooldown:      opts.CircuitBreakerTimeout,
		onStateChange: p.onBreakerStateChange,
	})

	if err := registerBreakerGauge(opts.MeterProvider, p.breaker); err != nil {
		shutdown()
		return nil, fmt.Errorf("failed to register circuit breaker gauge: %w", err)
	}

	log.Info("event publisher created",
		zap.String("service", opts.ServiceName),
		zap.String("instanceId", opts.InstanceID),
		zap.Int("maxRetries", opts.MaxRetries),
		zap.Int("circuitBreakerThreshold", opts.CircuitBreakerThreshold),
		zap.Duration("circuitBreakerTimeout", opts.CircuitBreakerTimeout),
		zap.Bool("enableDLQ", opts.EnableDLQ),
		zap.Bool("enableSanitization", opts.EnableSanitization),
	)
	return p, nil
}

// NewKafka connects to brokers (comma-separated host:port list) and returns a publisher
// that owns the resulting producer. It waits for the brokers like the fx module does.
func NewKafka(ctx context.Context, brokers string, opts Options, log *zap.Logger) (*EventPublisher, error) {
	if err := opts.normalize(); err != nil {
		return nil, err
	}

	conf, err := config.New(brokers)
	if err != nil {
		return nil, err
	}
	conf.ProducerConfig.ClientID = opts.InstanceID
	conf.ProducerConfig.FlushTimeout = opts.FlushTimeout

	client, err := producer.NewClient(ctx, conf, log)
	if err != nil {
		return nil, err
	}

	p, err := New(client, opts, log)
	if err != nil {
		client.Close()
		return nil, err
	}
	return p, nil
}

// Publish wraps payload in an envelope and delivers it to the event type topic,
// or to the topic given with WithTopic.
func (p *EventPublisher) Publish(ctx context.Context, eventType string, payload events.Payload, opts ...PublishOption) (bool, error) {
	if !p.enter() {
		return false, ErrPublisherClosed
	}
	defer p.inflight.Done()

	ctx, stop := p.bindShutdown(ctx)
	defer stop()

	start := time.Now()
	o := newPublishOptions(opts)
	log := p.contextLogger(ctx)

	envelope, err := p.builder.Build(events.Params{
		EventType:     eventType,
		Payload:       payload,
		CorrelationID: o.correlationID,
		CausationID:   o.causationID,
		Metadata:      o.metadata,
	})
	if err != nil {
		p.metrics.recordEnvelopeError(ctx)
		log.Warn("event envelope rejected", zap.String("eventType", eventType), zap.Error(err))
		return false, err
	}

	value, err := p.serializer.Serialize(envelope)
	if err != nil {
		p.metrics.recordSerializationError(ctx)
		log.Warn("event serialization failed",
			zap.String("eventType", eventType),
			zap.String("eventId", envelope.EventID().String()),
			zap.Error(err),
		)
		return false, err
	}

	topic := lo.Ternary(o.topic != "", o.topic, eventType)

	permit, err := p.breaker.acquire()
	if err != nil {
		openErr := &CircuitOpenError{Topic: topic, EventType: eventType, RetryAfter: p.breaker.retryAfter()}
		p.throttler.Warn("circuit-open:"+topic, "publish refused, circuit breaker is open",
			zap.String("topic", topic),
			zap.String("eventType", eventType),
			zap.Duration("retryAfter", openErr.RetryAfter),
		)
		return false, openErr
	}

	spanCtx, span := p.tracer.start(ctx, "kafka.publish "+topic, topic, envelope)
	msg := &producer.Message{
		Topic:   topic,
		Value:   value,
		Headers: envelopeHeaders(envelope, p.serializer.ContentType()),
	}
	if o.partitionKey != "" {
		msg.Key = []byte(o.partitionKey)
	}
	p.tracer.inject(spanCtx, msg.Headers)

	result := p.retry.execute(spanCtx, msg)
	endSpan(span, result)

	log = log.With(eventFields(spanCtx, topic, envelope)...)

	var rejected *RejectedError
	if result.outcome == outcomeRejected {
		rejected = &RejectedError{Topic: topic, EventID: envelope.EventID(), Err: result.err}
	}
	p.settle(ctx, permit, topic, time.Since(start), result, rejected)

	switch result.outcome {
	case outcomeDelivered:
		log.Debug("event published", zap.Int("attempts", result.attempts))
		return true, nil

	case outcomeExhausted:
		log.Error("event publish failed after retries",
			zap.Int("attempts", result.attempts),
			zap.Error(result.err),
		)
		if p.opts.EnableDLQ && p.dlq.route(spanCtx, msg, envelope, result) {
			p.metrics.recordSentToDLQ(ctx, topic)
		}
		return false, nil

	case outcomeRejected:
		log.Error("event rejected by broker",
			zap.Int("attempts", result.attempts),
			zap.Bool("panic", isPanic(result.err)),
			zap.Error(result.err),
		)
		return false, rejected

	default:
		log.Debug("event publish cancelled", zap.Int("attempts", result.attempts), zap.Error(result.err))
		return false, result.err
	}
}

// settle records the outcome on the breaker and in the counters while holding recordMu.
// Rejections and cancellations release the permit without counting against the breaker.
func (p *EventPublisher) settle(ctx context.Context, permit breakerPermit, topic string, elapsed time.Duration, result deliveryResult, rejected *RejectedError) {
	p.recordMu.Lock()
	defer p.recordMu.Unlock()

	switch result.outcome {
	case outcomeDelivered:
		p.breaker.recordSuccess(permit)
		p.metrics.recordPublished(ctx, topic, elapsed, result.retries())
	case outcomeExhausted:
		p.breaker.recordFailure(permit, result.err)
		p.metrics.recordFailed(ctx, topic, result.retries())
	case outcomeRejected:
		p.breaker.release(permit, rejected)
		p.metrics.recordRejected(ctx, topic, result.retries())
	default:
		p.breaker.release(permit, result.err)
	}
}

// Metrics returns a consistent snapshot of the publisher counters.
func (p *EventPublisher) Metrics() PublisherMetrics {
	p.recordMu.Lock()
	defer p.recordMu.Unlock()
	return p.metrics.snapshot(p.breaker.snapshot())
}

// BreakerState returns the current circuit breaker state.
func (p *EventPublisher) BreakerState() BreakerSnapshot {
	return p.breaker.snapshot()
}

// IsCircuitOpen reports whether Publish would currently fail fast.
func (p *EventPublisher) IsCircuitOpen() bool {
	return p.breaker.isOpen()
}

// Close stops accepting publishes, waits for in-flight ones, flushes the producer queue and
// closes the client. Waiting and flushing share one budget: FlushTimeout, cut short by the
// ctx deadline or cancellation. It returns an error when messages were still queued.
// Calling Close again returns the first result.
func (p *EventPublisher) Close(ctx context.Context) error {
	p.closeOnce.Do(func() {
		p.closeErr = p.close(ctx)
	})
	return p.closeErr
}

func (p *EventPublisher) close(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	deadline := time.Now().Add(p.opts.FlushTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	if !waitInFlight(ctx, &p.inflight, deadline) {
		p.log.Warn("in-flight publishes did not finish in time, cancelling them", zap.Time("deadline", deadline))
		p.shutdown()
		p.inflight.Wait()
	}
	p.shutdown()

	budget := max(time.Until(deadline), 0)
	if ctx.Err() != nil {
		budget = 0
	}
	remaining := p.client.Flush(budget)
	p.client.Close()

	m := p.Metrics()
	if remaining > 0 {
		p.log.Error("messages lost on close", zap.Int("count", remaining), zap.Duration("flushBudget", budget))
		return fmt.Errorf("%d messages still queued after %v flush timeout", remaining, budget)
	}

	p.log.Info("event publisher closed",
		zap.Int64("published", m.EventsPublished),
		zap.Int64("failed", m.EventsFailed),
		zap.Int64("sentToDLQ", m.EventsSentToDLQ),
	)
	return nil
}

func (p *EventPublisher) enter() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	p.inflight.Add(1)
	return true
}

// bindShutdown derives a context that is also cancelled when Close stops waiting.
func (p *EventPublisher) bindShutdown(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(p.shutdownCtx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (p *EventPublisher) onBreakerStateChange(from, to BreakerState, snapshot BreakerSnapshot) {
	fields := []zap.Field{
		zap.Stringer("from", from),
		zap.Stringer("to", to),
		zap.Int("failureCount", snapshot.FailureCount),
	}
	switch to {
	case StateOpen:
		p.metrics.recordBreakerOpen()
		p.log.Error("circuit breaker opened, publishing is blocked",
			append(fields, zap.Duration("cooldown", p.opts.CircuitBreakerTimeout))...)
	case StateHalfOpen:
		p.log.Info("circuit breaker half-open, admitting a trial publish", fields...)
	case StateClosed:
		p.log.Info("circuit breaker closed, publishing recovered", fields...)
	}
}

func waitInFlight(ctx context.Context, wg *sync.WaitGroup, deadline time.Time) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	select {
	case <-done:
		return true
	case <-ctx.Done():
		select {
		case <-done:
			return true
		default:
			return false
		}
	}
}

// contextLogger prefers a logger the caller attached to ctx.
func (p *EventPublisher) contextLogger(ctx context.Context) *zap.Logger {
	if log, ok := logger.FromContext(ctx); ok {
		return log.With(zap.String("component", "event-publisher"))
	}
	return p.log
}

func eventFields(ctx context.Context, topic string, envelope *events.EventEnvelope) []zap.Field {
	fields := []zap.Field{
		zap.String("topic", topic),
		zap.String("eventType", envelope.EventType()),
		zap.String("eventId", envelope.EventID().String()),
		zap.String("correlationId", envelope.CorrelationID().String()),
	}
	if traceID, spanID := tracing.GetTraceIDAndSpanID(ctx); traceID != "" {
		fields = append(fields, zap.String("traceId", traceID), zap.String("spanId", spanID))
	}
	return fields
}
