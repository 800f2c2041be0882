package telemetry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windaep/windaep/internal/telemetry"
)

func TestInit_Disabled(t *testing.T) {
	ctx := context.Background()

	provider, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    "windaep-test",
		ServiceVersion: "1.0.0",
		Environment:    "test",
		OTLPEndpoint:   "localhost:4317",
		Enabled:        false,
	})

	require.NoError(t, err)
	assert.NoError(t, provider.Shutdown(ctx))
}

func TestProvider_ShutdownZeroValue(t *testing.T) {
	provider := &telemetry.Provider{}
	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestSampler(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{0, "AlwaysOnSampler"},
		{1, "AlwaysOnSampler"},
		{0.25, "TraceIDRatioBased{0.25}"},
		{-1, "AlwaysOnSampler"},
	}
	for _, tt := range tests {
		desc := telemetry.Sampler(tt.ratio).Description()
		assert.Contains(t, desc, "ParentBased")
		assert.Contains(t, desc, tt.want)
	}
}

func TestProviderMetrics_RecordOnNoopMeter(t *testing.T) {
	m, err := telemetry.NewProviderMetrics()
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		m.RecordRequest("cds", "retrieve", time.Second, nil)
		m.RecordRequest("cds", "retrieve", time.Second, errors.New("boom"))
		m.RecordCacheHit("cds", "retrieve")
		m.RecordCacheMiss("cds", "retrieve")
	})
}

func TestJobMetrics_RecordOnNoopMeter(t *testing.T) {
	m, err := telemetry.NewJobMetrics()
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		m.RecordJob(context.Background(), "spatial", "success", 2*time.Minute)
	})
}
