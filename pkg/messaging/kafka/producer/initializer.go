package producer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"
)

var (
	brokerPollInterval = 500 * time.Millisecond
	metadataTimeout    = 5 * time.Second

	errNoBrokers = errors.New("metadata lists no brokers")
)

type metadataProvider interface {
	GetMetadata(topic *string, allTopics bool, timeoutMs int) (*kafka.Metadata, error)
}

// waitForBrokers polls cluster metadata until at least one broker answers.
// With failOnError unset an unreachable cluster is only logged: librdkafka keeps
// reconnecting and early publishes are retried by the publisher.
func waitForBrokers(ctx context.Context, p metadataProvider, log *zap.Logger, timeoutSec int, failOnError bool) error {
	log.Info("waiting for kafka brokers", zap.Int("timeoutSeconds", timeoutSec))

	if timeoutSec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(timeoutSec)*time.Second)
		defer cancel()
	}

	start := time.Now()
	brokers, err := pollBrokers(ctx, p, log)
	if err != nil {
		if failOnError {
			return fmt.Errorf("kafka brokers not available: %w", err)
		}
		log.Warn("kafka brokers not available, continuing", zap.Error(err))
		return nil
	}

	log.Info("kafka brokers available", zap.Int("brokers", brokers), zap.Duration("waited", time.Since(start)))
	return nil
}

func pollBrokers(ctx context.Context, p metadataProvider, log *zap.Logger) (int, error) {
	operation := func() (int, error) {
		meta, err := p.GetMetadata(nil, false, int(metadataTimeout.Milliseconds()))
		if err != nil {
			return 0, err
		}
		if len(meta.Brokers) == 0 {
			return 0, errNoBrokers
		}
		return len(meta.Brokers), nil
	}
	notify := func(err error, next time.Duration) {
		log.Debug("kafka metadata request failed", zap.Error(err), zap.Duration("retryIn", next))
	}

	policy := backoff.WithContext(backoff.NewConstantBackOff(brokerPollInterval), ctx)
	return backoff.RetryNotifyWithData(operation, policy, notify)
}
