package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/skirmish/internal/config"
)

func TestSetupTracing_DisabledIsNoop(t *testing.T) {
	shutdown, err := SetupTracing(context.Background(), config.TelemetryConfig{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetupTracing_Enabled(t *testing.T) {
	shutdown, err := SetupTracing(context.Background(), config.TelemetryConfig{
		Enabled:     true,
		ServiceName: "skirmish-test",
		Endpoint:    "http://127.0.0.1:4318",
	})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = shutdown(ctx)
}
