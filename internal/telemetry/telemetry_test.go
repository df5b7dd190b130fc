package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pbaille/neuroassist/internal/config"
)

func TestNewExporter(t *testing.T) {
	ctx := context.Background()

	exp, err := newExporter(ctx, config.TelemetryConfig{Exporter: "stdout"})
	require.NoError(t, err)
	assert.NoError(t, exp.Shutdown(ctx))

	exp, err = newExporter(ctx, config.TelemetryConfig{Exporter: "otlp", Endpoint: "localhost:4318"})
	require.NoError(t, err)
	assert.NoError(t, exp.Shutdown(ctx))
}

func TestInitDisabled(t *testing.T) {
	stop, err := Init(context.Background(), zap.NewNop(), config.TelemetryConfig{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, stop)
	assert.NoError(t, stop(context.Background()))
}
