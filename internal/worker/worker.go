// Package worker executes a single artifact job end to end: download into a
// spool file, verify the upstream digest, recompress into the output
// directory, and write the checksum sidecar.
package worker

import (
	"context"
	"fmt"
	"io"
	"mirror/pkg/checksum"
	"mirror/pkg/domain"
	"mirror/pkg/fetcher"
	"mirror/pkg/logger"
	"mirror/pkg/metrics"
	"mirror/pkg/recompress"
	"mirror/pkg/serrors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Worker processes one artifact at a time. It is safe for concurrent use; a
// single Worker is shared by all pipeline goroutines.
type Worker struct {
	fetcher      fetcher.Client
	recompressor *recompress.Recompressor
	metrics      *metrics.Pipeline
}

// New constructs a Worker from its collaborators.
func New(fetcherClient fetcher.Client, recompressor *recompress.Recompressor, m *metrics.Pipeline) *Worker {
	return &Worker{
		fetcher:      fetcherClient,
		recompressor: recompressor,
		metrics:      m,
	}
}

// Process mirrors a single artifact into outDir. Failures are captured in the
// returned result rather than surfaced as an error: one bad artifact must not
// tear down the rest of the run.
func (w *Worker) Process(ctx context.Context, artifact domain.Artifact, outDir string) domain.ArtifactResult {
	ctx = logger.WithFields(ctx,
		zap.String("artifact", artifact.Name),
		zap.String("url", artifact.URL))

	result := domain.ArtifactResult{
		Artifact: artifact,
		Status:   domain.ArtifactStatusPending,
	}

	if err := w.process(ctx, artifact, outDir, &result); err != nil {
		logger.Error(ctx, "artifact failed", zap.Error(err))
		w.metrics.ArtifactsFailed.Add(ctx, 1)

		result.Status = domain.ArtifactStatusFailed
		result.LastError = err.Error()

		return result
	}

	logger.Info(ctx, "artifact mirrored",
		zap.String("output", result.OutputPath),
		zap.Int64("downloadedBytes", result.DownloadedBytes),
		zap.Int64("outputBytes", result.OutputBytes),
		zap.Duration("downloadDuration", result.DownloadDuration),
		zap.Duration("recompressDuration", result.RecompressDuration))
	w.metrics.ArtifactsCompleted.Add(ctx, 1)

	result.Status = domain.ArtifactStatusCompleted

	return result
}

func (w *Worker) process(ctx context.Context, artifact domain.Artifact, outDir string, result *domain.ArtifactResult) error {
	spool, err := os.CreateTemp("", "mirror-spool-*")
	if err != nil {
		return fmt.Errorf("could not create spool file: %w", err)
	}
	defer func() {
		_ = spool.Close()
		_ = os.Remove(spool.Name())
	}()

	downloadStart := time.Now()

	logger.Info(ctx, "downloading artifact")
	info, err := w.fetcher.Fetch(ctx, artifact.URL, spool)
	if err != nil {
		return fmt.Errorf("could not download artifact: %w", err)
	}
	result.DownloadedBytes = info.Size
	w.metrics.BytesDownloaded.Add(ctx, info.Size)

	logger.Debug(ctx, "verifying digest")
	if err := verifySpool(spool, artifact); err != nil {
		return err
	}

	result.DownloadDuration = time.Since(downloadStart)
	w.metrics.DownloadSeconds.Record(ctx, result.DownloadDuration.Seconds())

	recompressStart := time.Now()

	outPath := filepath.Join(outDir, artifact.OutputName())
	logger.Info(ctx, "recompressing artifact", zap.String("output", outPath))
	written, err := w.recompressSpool(spool, outPath)
	if err != nil {
		// don't leave a truncated output file behind
		_ = os.Remove(outPath)

		return err
	}
	result.OutputBytes = written
	w.metrics.BytesWritten.Add(ctx, written)

	logger.Debug(ctx, "writing checksum sidecar")
	outDigest, err := checksum.WriteSidecar(outPath)
	if err != nil {
		_ = os.Remove(outPath)

		return fmt.Errorf("could not write sidecar: %w", err)
	}

	result.RecompressDuration = time.Since(recompressStart)
	w.metrics.RecompressSeconds.Record(ctx, result.RecompressDuration.Seconds())

	result.OutputPath = outPath
	result.OutputSHA256 = outDigest

	return nil
}

// verifySpool checks the downloaded content against the manifest digest.
func verifySpool(spool *os.File, artifact domain.Artifact) error {
	if _, err := spool.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("could not rewind spool: %w", err)
	}

	actual, err := checksum.Reader(spool)
	if err != nil {
		return fmt.Errorf("could not hash spool: %w", err)
	}
	if !strings.EqualFold(actual, artifact.SHA256) {
		return serrors.With(serrors.ErrIntegrity,
			"digest mismatch for %s [expected=%s, actual=%s]", artifact.URL, artifact.SHA256, actual)
	}

	return nil
}

// recompressSpool re-encodes the verified spool into the final output file.
func (w *Worker) recompressSpool(spool *os.File, outPath string) (int64, error) {
	if _, err := spool.Seek(0, io.SeekStart); err != nil {
		return 0, fmt.Errorf("could not rewind spool: %w", err)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return 0, fmt.Errorf("could not create output file: %w", err)
	}

	written, err := w.recompressor.Recompress(out, spool)
	if err != nil {
		_ = out.Close()

		return written, fmt.Errorf("could not recompress artifact: %w", err)
	}
	if err := out.Close(); err != nil {
		return written, fmt.Errorf("could not close output file: %w", err)
	}

	return written, nil
}
