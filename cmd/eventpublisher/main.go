// Package main provides the eventpublisher CLI for sending events through the resilient publisher.
//
// Usage:
//
//	eventpublisher publish --brokers localhost:9092 --service orders --type orders.created \
//	    --payload '{"order_id":"42"}' --count 100 --concurrency 8
//
// Connection and publisher settings can also come from a config file (--config or CONFIG_FILE)
// with a "kafka" section. Metrics are printed as JSON when the run finishes.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "eventpublisher",
		Short:         "Publish events to Kafka with retries, a circuit breaker and dead-letter routing",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newPublishCmd(), newVersionCmd())

	return rootCmd
}
