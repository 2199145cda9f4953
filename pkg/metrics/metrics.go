// Package metrics defines the OpenTelemetry instruments recorded by the
// mirror pipeline and the Prometheus-backed meter provider they are exported
// through.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// DefaultBuckets provides histogram buckets in seconds for the pipeline's
// stage durations. Downloads and recompressions of release tarballs run for
// seconds to minutes, so the range is much coarser than typical request
// latency buckets.
var DefaultBuckets = []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600} //nolint: gochecknoglobals

// NewMeterProvider returns a meter provider whose instruments are exported
// through the default Prometheus registry, so the debug server's metrics
// endpoint picks them up.
func NewMeterProvider() (metric.MeterProvider, error) {
	exp, err := otelprom.New(otelprom.WithRegisterer(prometheus.DefaultRegisterer))
	if err != nil {
		return nil, fmt.Errorf("could not create otel exporter: %w", err)
	}

	return sdkmetric.NewMeterProvider(sdkmetric.WithReader(exp)), nil
}

// Pipeline bundles the instruments the mirror pipeline records per artifact.
type Pipeline struct {
	// ArtifactsCompleted counts artifacts that made it into the output directory.
	ArtifactsCompleted metric.Int64Counter
	// ArtifactsFailed counts artifacts that failed at any stage.
	ArtifactsFailed metric.Int64Counter
	// BytesDownloaded counts upstream body bytes written to spool files.
	BytesDownloaded metric.Int64Counter
	// BytesWritten counts recompressed bytes written to the output directory.
	BytesWritten metric.Int64Counter
	// DownloadSeconds observes per-artifact download plus verification time.
	DownloadSeconds metric.Float64Histogram
	// RecompressSeconds observes per-artifact recompression plus sidecar time.
	RecompressSeconds metric.Float64Histogram
}

// NewPipeline creates the pipeline instruments on the given provider.
func NewPipeline(mp metric.MeterProvider) (*Pipeline, error) {
	meter := mp.Meter("mirror/pipeline")

	var p Pipeline
	var err error

	if p.ArtifactsCompleted, err = meter.Int64Counter("mirror_artifacts_completed_total",
		metric.WithDescription("Artifacts mirrored successfully")); err != nil {
		return nil, fmt.Errorf("could not create counter: %w", err)
	}
	if p.ArtifactsFailed, err = meter.Int64Counter("mirror_artifacts_failed_total",
		metric.WithDescription("Artifacts that failed to mirror")); err != nil {
		return nil, fmt.Errorf("could not create counter: %w", err)
	}
	if p.BytesDownloaded, err = meter.Int64Counter("mirror_downloaded_bytes",
		metric.WithDescription("Upstream bytes downloaded"),
		metric.WithUnit("By")); err != nil {
		return nil, fmt.Errorf("could not create counter: %w", err)
	}
	if p.BytesWritten, err = meter.Int64Counter("mirror_written_bytes",
		metric.WithDescription("Recompressed bytes written to the output directory"),
		metric.WithUnit("By")); err != nil {
		return nil, fmt.Errorf("could not create counter: %w", err)
	}
	if p.DownloadSeconds, err = meter.Float64Histogram("mirror_download_seconds",
		metric.WithDescription("Per-artifact download and verification duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(DefaultBuckets...)); err != nil {
		return nil, fmt.Errorf("could not create histogram: %w", err)
	}
	if p.RecompressSeconds, err = meter.Float64Histogram("mirror_recompress_seconds",
		metric.WithDescription("Per-artifact recompression and sidecar duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(DefaultBuckets...)); err != nil {
		return nil, fmt.Errorf("could not create histogram: %w", err)
	}

	return &p, nil
}
