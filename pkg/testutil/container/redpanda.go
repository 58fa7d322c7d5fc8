package container

import (
	"context"
	"fmt"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/redpanda"
)

// RedpandaContainer is a single-node Kafka-compatible broker for integration tests.
type RedpandaContainer struct {
	Container *redpanda.Container
	// Brokers is the bootstrap address reachable from the test process.
	Brokers string
}

// RedpandaOption configures the Redpanda container.
type RedpandaOption func(*redpandaOptions)

type redpandaOptions struct {
	image       string
	customizers []testcontainers.ContainerCustomizer
}

// WithRedpandaImage sets the Redpanda image to use.
func WithRedpandaImage(image string) RedpandaOption {
	return func(o *redpandaOptions) {
		o.image = image
	}
}

// WithRedpandaCustomizer passes an extra customizer to the redpanda module.
func WithRedpandaCustomizer(c testcontainers.ContainerCustomizer) RedpandaOption {
	return func(o *redpandaOptions) {
		o.customizers = append(o.customizers, c)
	}
}

// StartRedpandaContainer starts Redpanda with topic auto-creation enabled,
// so publishing to a new topic or its ".dlq" companion needs no setup.
func StartRedpandaContainer(ctx context.Context, opts ...RedpandaOption) (*RedpandaContainer, error) {
	options := &redpandaOptions{
		image: "redpandadata/redpanda:v24.1.1",
	}
	for _, opt := range opts {
		opt(options)
	}

	tcOpts := append([]testcontainers.ContainerCustomizer{redpanda.WithAutoCreateTopics()}, options.customizers...)

	rpContainer, err := redpanda.Run(ctx, options.image, tcOpts...)
	if err != nil {
		if rpContainer != nil {
			_ = testcontainers.TerminateContainer(rpContainer)
		}
		return nil, fmt.Errorf("failed to start redpanda container: %w", err)
	}

	brokers, err := rpContainer.KafkaSeedBroker(ctx)
	if err != nil {
		_ = testcontainers.TerminateContainer(rpContainer)
		return nil, fmt.Errorf("failed to get kafka seed broker: %w", err)
	}

	return &RedpandaContainer{
		Container: rpContainer,
		Brokers:   brokers,
	}, nil
}

// Terminate stops and removes the container.
func (r *RedpandaContainer) Terminate(context.Context) error {
	if r.Container == nil {
		return nil
	}
	if err := testcontainers.TerminateContainer(r.Container); err != nil {
		return fmt.Errorf("failed to terminate redpanda container: %w", err)
	}
	return nil
}
