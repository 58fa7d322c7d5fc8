package metrics

import (
	"context"
	"testing"
	"time"

	appconfig "github.com/Sokol111/ecommerce-event-publisher/pkg/core/config"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestNewProvider_RequiresEndpoint(t *testing.T) {
	_, err := newProvider(context.Background(), zap.NewNop(), "", time.Second, appconfig.AppConfig{ServiceName: "orders"})

	assert.ErrorContains(t, err, "otel-collector-endpoint is required")
}
