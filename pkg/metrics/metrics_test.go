package metrics_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"mirror/pkg/metrics"
)

func TestNewPipeline_NoopProvider(t *testing.T) {
	p, err := metrics.NewPipeline(noop.NewMeterProvider())
	require.NoError(t, err)

	// recording on noop instruments must be safe
	ctx := context.Background()
	p.ArtifactsCompleted.Add(ctx, 1)
	p.BytesDownloaded.Add(ctx, 1024)
	p.DownloadSeconds.Record(ctx, 1.5)
}

func TestNewMeterProvider_ExportsThroughPrometheus(t *testing.T) {
	mp, err := metrics.NewMeterProvider()
	require.NoError(t, err)

	p, err := metrics.NewPipeline(mp)
	require.NoError(t, err)

	ctx := context.Background()
	p.ArtifactsCompleted.Add(ctx, 2)
	p.ArtifactsFailed.Add(ctx, 1)
	p.BytesDownloaded.Add(ctx, 4096)
	p.BytesWritten.Add(ctx, 2048)
	p.DownloadSeconds.Record(ctx, 12.5)
	p.RecompressSeconds.Record(ctx, 60)

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}

	for _, want := range []string{
		"mirror_artifacts_completed_total",
		"mirror_artifacts_failed_total",
		"mirror_download_seconds",
		"mirror_recompress_seconds",
	} {
		require.True(t, names[want], "expected metric family %q, got %v", want, names)
	}
}
