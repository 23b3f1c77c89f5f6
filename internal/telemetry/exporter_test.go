package telemetry

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/roach88/cogtask/internal/ir"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func TestExporter_RecordsTrialsAndBlocks(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	e, err := newExporter(ctx, reader)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close(ctx) })

	row := ir.ExportRow{
		BlockType:       ir.TaskStroop,
		Label:           ir.LabelCorrect,
		ResponseTime:    450 * time.Millisecond,
		ParticipantType: ir.ParticipantMain,
	}
	e.RecordTrial(ctx, row)
	e.RecordTrial(ctx, row)
	e.RecordBlock(ctx, ir.TaskStroop, 2)

	metrics := collect(t, reader)

	trials, ok := metrics["cogtask_trials_total"].(metricdata.Sum[int64])
	require.True(t, ok, "trials counter missing")
	require.Len(t, trials.DataPoints, 1)
	assert.Equal(t, int64(2), trials.DataPoints[0].Value)

	hist, ok := metrics["cogtask_response_time_seconds"].(metricdata.Histogram[float64])
	require.True(t, ok, "response time histogram missing")
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(2), hist.DataPoints[0].Count)
	assert.InDelta(t, 0.9, hist.DataPoints[0].Sum, 1e-9)

	blocks, ok := metrics["cogtask_blocks_total"].(metricdata.Sum[int64])
	require.True(t, ok, "blocks counter missing")
	assert.Equal(t, int64(1), blocks.DataPoints[0].Value)
}

func TestNewExporter_RequiresEndpoint(t *testing.T) {
	_, err := NewExporter(context.Background(), Config{Enabled: true})
	assert.Error(t, err)

	_, err = NewExporter(context.Background(), Config{Endpoint: "localhost:4317"})
	assert.Error(t, err)
}

func TestOpen_DisabledIsNoOp(t *testing.T) {
	rec := Open(context.Background(), Config{}, nil)
	assert.IsType(t, NoOp{}, rec)
	assert.NoError(t, rec.Close(context.Background()))
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("COGTASK_OTEL_ENABLED", "true")
	t.Setenv("COGTASK_OTEL_ENDPOINT", "collector:4317")
	t.Setenv("COGTASK_OTEL_INSECURE", "1")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, Config{Enabled: true, Endpoint: "collector:4317", Insecure: true}, cfg)
}

func TestLoadConfig_Defaults(t *testing.T) {
	for _, key := range []string{"COGTASK_OTEL_ENABLED", "COGTASK_OTEL_ENDPOINT", "COGTASK_OTEL_INSECURE"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.False(t, cfg.Enabled)
}

func TestLoadConfig_InvalidBool(t *testing.T) {
	t.Setenv("COGTASK_OTEL_ENABLED", "maybe")

	_, err := LoadConfig()
	assert.Error(t, err)
}
