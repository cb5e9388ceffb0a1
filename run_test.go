package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

func TestSetupTelemetry_Disabled(t *testing.T) {
	cfg := defaultConfig()
	mp, lp, shutdown, err := setupTelemetry(context.Background(), &cfg)
	require.NoError(t, err)
	assert.NotNil(t, mp)
	assert.NotNil(t, lp)
	shutdown()
}

func TestSetupTelemetry_EnabledBuildsSDKProviders(t *testing.T) {
	cfg := defaultConfig()
	cfg.OTel.Enabled = true
	cfg.OTel.ServiceName = "minecraft-relay-test"
	cfg.Metrics.Enabled = false

	mp, lp, shutdown, err := setupTelemetry(context.Background(), &cfg)
	require.NoError(t, err)
	defer shutdown()

	assert.NotNil(t, mp)
	assert.IsType(t, &sdklog.LoggerProvider{}, lp)
}
