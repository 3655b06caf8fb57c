package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "detcore-engine", cfg.ServiceName)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 1.0, cfg.SampleRate)
}

func TestNewProviderDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false

	p, err := New(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, p)

	// A disabled provider still returns usable no-op tracer/meter.
	assert.NotNil(t, p.Tracer())
	assert.NotNil(t, p.Meter())
}

func TestNewProviderWithNilConfig(t *testing.T) {
	p, err := New(context.Background(), nil)
	require.NoError(t, err)
	require.NotNil(t, p)
}

func TestTrackOperation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false
	p, err := New(context.Background(), cfg)
	require.NoError(t, err)

	ctx, finish := p.TrackOperation(context.Background(), "execute_run", RunOperation("job-1", "run-1", "pipeline")...)
	require.NotNil(t, ctx)
	finish(nil)
}

func TestTrackOperationWithError(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false
	p, err := New(context.Background(), cfg)
	require.NoError(t, err)

	ctx, finish := p.TrackOperation(context.Background(), "verify_run", VerifyOperation("run-1", false, 2)...)
	require.NotNil(t, ctx)
	finish(errors.New("boom"))
}

func TestShutdown(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false
	p, err := New(context.Background(), cfg)
	require.NoError(t, err)
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestRunOperationAttributes(t *testing.T) {
	attrs := RunOperation("job-1", "run-1", "pipeline")
	require.Len(t, attrs, 3)
	assert.Equal(t, "detcore.job.id", string(attrs[0].Key))
}

func TestMigrationOperationAttributes(t *testing.T) {
	attrs := MigrationOperation("artifacts/run-1/manifest.json", "1.0.0", "1.2.0")
	require.Len(t, attrs, 3)
	assert.Equal(t, "1.0.0", attrs[1].Value.AsString())
	assert.Equal(t, "1.2.0", attrs[2].Value.AsString())
}

func TestReindexOperationAttributes(t *testing.T) {
	attrs := ReindexOperation("./artifacts", 7)
	require.Len(t, attrs, 2)
	assert.Equal(t, int64(7), attrs[1].Value.AsInt64())
}

func TestSpanFromContext(t *testing.T) {
	span := SpanFromContext(context.Background())
	assert.NotNil(t, span)
}

func TestAddSpanEvent(t *testing.T) {
	// No active recording span on a bare context: must not panic.
	AddSpanEvent(context.Background(), "test.event")
}

func TestSetSpanStatus(t *testing.T) {
	SetSpanStatus(context.Background(), errors.New("boom"))
	SetSpanStatus(context.Background(), nil)
}
