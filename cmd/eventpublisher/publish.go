package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/Sokol111/ecommerce-event-publisher/pkg/core"
	appconfig "github.com/Sokol111/ecommerce-event-publisher/pkg/core/config"
	"github.com/Sokol111/ecommerce-event-publisher/pkg/core/logger"
	"github.com/Sokol111/ecommerce-event-publisher/pkg/messaging"
	"github.com/Sokol111/ecommerce-event-publisher/pkg/messaging/kafka/events"
	"github.com/Sokol111/ecommerce-event-publisher/pkg/messaging/publisher"
	"github.com/Sokol111/ecommerce-event-publisher/pkg/observability"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

type publishFlags struct {
	configFile    string
	brokers       string
	service       string
	instanceID    string
	eventType     string
	topic         string
	key           string
	payload       string
	correlationID string
	count         int
	concurrency   int
	timeout       time.Duration
	verbose       bool
}

// runSummary is printed when the run finishes.
type runSummary struct {
	Requested int                        `json:"requested"`
	Confirmed int64                      `json:"confirmed"`
	Metrics   publisher.PublisherMetrics `json:"metrics"`
}

func newPublishCmd() *cobra.Command {
	f := &publishFlags{}

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish one or more copies of an event",
		Long: `Publish wraps the payload in an event envelope and sends it --count times.

Each copy gets its own event id. Transient broker failures are retried with exponential
backoff; events that still fail are written to "<topic>.dlq".

Example:
  eventpublisher publish --brokers localhost:9092 --service orders \
      --type orders.created --payload '{"order_id":"42"}'`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := f.validate(); err != nil {
				return err
			}
			return runPublish(cmd.Context(), f, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&f.eventType, "type", "t", "", "Event type, also the default topic (required)")
	cmd.Flags().StringVarP(&f.service, "service", "s", "", "Producing service name (required)")
	cmd.Flags().StringVarP(&f.payload, "payload", "p", "{}", "Payload as a JSON object")

	cmd.Flags().StringVarP(&f.brokers, "brokers", "b", "", "Comma-separated bootstrap brokers; replaces only kafka.brokers from the config file")
	cmd.Flags().StringVarP(&f.configFile, "config", "c", "", "Config file with a kafka section (default: $CONFIG_FILE)")
	cmd.Flags().StringVar(&f.instanceID, "instance-id", "", "Producing instance id (default: <hostname>-<pid>)")
	cmd.Flags().StringVar(&f.topic, "topic", "", "Topic override")
	cmd.Flags().StringVarP(&f.key, "key", "k", "", "Partition key")
	cmd.Flags().StringVar(&f.correlationID, "correlation-id", "", "Correlation id to continue (default: new per event)")
	cmd.Flags().IntVarP(&f.count, "count", "n", 1, "Number of events to publish")
	cmd.Flags().IntVar(&f.concurrency, "concurrency", 1, "Publishes in flight at once")
	cmd.Flags().DurationVar(&f.timeout, "timeout", time.Minute, "Deadline for connecting and for closing")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Debug logging")

	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("service")

	return cmd
}

func (f *publishFlags) validate() error {
	if f.count < 1 {
		return fmt.Errorf("--count must be at least 1, got: %d", f.count)
	}
	if f.concurrency < 1 {
		return fmt.Errorf("--concurrency must be at least 1, got: %d", f.concurrency)
	}
	if !json.Valid([]byte(f.payload)) {
		return fmt.Errorf("--payload is not valid JSON")
	}
	if f.correlationID != "" {
		if _, err := uuid.Parse(f.correlationID); err != nil {
			return fmt.Errorf("--correlation-id: %w", err)
		}
	}
	return nil
}

func (f *publishFlags) publishOptions() []publisher.PublishOption {
	var opts []publisher.PublishOption
	if f.topic != "" {
		opts = append(opts, publisher.WithTopic(f.topic))
	}
	if f.key != "" {
		opts = append(opts, publisher.WithPartitionKey(f.key))
	}
	if f.correlationID != "" {
		opts = append(opts, publisher.WithCorrelationID(uuid.MustParse(f.correlationID)))
	}
	return opts
}

func (f *publishFlags) appOptions() fx.Option {
	coreOpts := []core.Option{
		core.WithAppConfig(appconfig.AppConfig{
			ServiceName:    f.service,
			ServiceVersion: version,
			Environment:    "cli",
			InstanceID:     f.instanceID,
		}),
	}
	if f.configFile != "" {
		coreOpts = append(coreOpts, core.WithConfigFile(f.configFile))
	}
	if f.verbose {
		coreOpts = append(coreOpts, core.WithLoggerConfig(logger.Config{
			Level:           zapcore.DebugLevel,
			Development:     true,
			StacktraceLevel: zapcore.ErrorLevel,
		}))
	}

	var messagingOpts []messaging.MessagingOption
	if f.brokers != "" {
		messagingOpts = append(messagingOpts, messaging.WithBrokers(f.brokers))
	}

	return fx.Options(
		core.NewCoreModule(coreOpts...),
		observability.NewObservabilityModule(),
		messaging.NewMessagingModule(messagingOpts...),
	)
}

func runPublish(ctx context.Context, f *publishFlags, out io.Writer) error {
	var (
		pub *publisher.EventPublisher
		log *zap.Logger
	)
	app := fx.New(f.appOptions(), fx.Populate(&pub, &log))

	startCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return fmt.Errorf("failed to start publisher: %w", err)
	}

	confirmed, runErr := publishAll(logger.With(ctx, log), pub, f)

	stopCtx, cancelStop := context.WithTimeout(context.Background(), f.timeout)
	defer cancelStop()
	stopErr := app.Stop(stopCtx)

	summaryErr := writeSummary(out, runSummary{
		Requested: f.count,
		Confirmed: confirmed,
		Metrics:   pub.Metrics(),
	})

	if runErr == nil && confirmed < int64(f.count) {
		runErr = fmt.Errorf("%d of %d events were not confirmed by the broker", int64(f.count)-confirmed, f.count)
	}
	return errors.Join(runErr, stopErr, summaryErr)
}

// publishAll sends f.count events with at most f.concurrency in flight.
// The first error stops the remaining publishes. Each publish logs with the event number
// through the logger attached to ctx.
func publishAll(ctx context.Context, pub *publisher.EventPublisher, f *publishFlags) (int64, error) {
	payload := events.RawJSON(f.payload)
	opts := f.publishOptions()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)

	var confirmed atomic.Int64
	for i := 0; i < f.count; i++ {
		g.Go(func() error {
			eventCtx := logger.With(ctx, logger.Get(ctx).With(zap.Int("event", i+1)))
			ok, err := pub.Publish(eventCtx, f.eventType, payload, opts...)
			if err != nil {
				return fmt.Errorf("event %d: %w", i+1, err)
			}
			if !ok {
				logger.Get(eventCtx).Warn("event not confirmed by the broker")
				return nil
			}
			confirmed.Add(1)
			return nil
		})
	}

	err := g.Wait()
	return confirmed.Load(), err
}

func writeSummary(out io.Writer, summary runSummary) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}
