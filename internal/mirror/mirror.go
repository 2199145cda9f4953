// Package mirror coordinates a mirror run: it fans artifact jobs out to the
// worker, tracks live progress, and assembles the final run report.
package mirror

import (
	"context"
	"fmt"
	"mirror/internal/config"
	"mirror/pkg/domain"
	"mirror/pkg/logger"
	"mirror/pkg/serrors"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Options configure how a run schedules its artifact jobs.
// These settings are typically derived from application configuration.
type Options struct {
	// Concurrency limits how many artifacts are processed at once.
	// Zero or negative means all artifacts in parallel.
	Concurrency int
}

// NewOptions constructs an Options value from the provided application config.
func NewOptions(cfg *config.Config) Options {
	return Options{
		Concurrency: cfg.Mirror.Concurrency,
	}
}

// ArtifactWorker processes a single artifact end to end. It is implemented by
// the worker package; the indirection keeps the pipeline testable.
type ArtifactWorker interface {
	Process(ctx context.Context, artifact domain.Artifact, outDir string) domain.ArtifactResult
}

// pipeline is the concrete implementation of the Pipeline interface.
type pipeline struct {
	options Options
	worker  ArtifactWorker

	// mu protects progress, which is read by the debug server while jobs run.
	mu       sync.Mutex
	progress domain.Progress
}

// New creates a Pipeline backed by the provided worker and configured with
// the given options.
func New(worker ArtifactWorker, options Options) Pipeline {
	return &pipeline{
		options: options,
		worker:  worker,
	}
}

// Run mirrors all artifacts into outDir. Artifacts are processed concurrently
// up to the configured limit; each settles independently so a single failure
// does not abort the others. Cancelling ctx stops scheduling and marks the
// remaining artifacts failed.
func (p *pipeline) Run(ctx context.Context, artifacts []domain.Artifact, outDir string) (domain.Report, error) {
	if len(artifacts) == 0 {
		return domain.Report{}, serrors.With(serrors.ErrBadRequest, "nothing to mirror")
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return domain.Report{}, fmt.Errorf("could not create output directory: %w", err)
	}

	runID := domain.NewRunID()
	ctx = logger.WithFields(ctx, zap.String("runID", runID.String()))

	startedAt := time.Now()
	p.mu.Lock()
	p.progress = domain.Progress{
		RunID:     runID,
		Total:     len(artifacts),
		StartedAt: startedAt,
	}
	p.mu.Unlock()

	logger.Info(ctx, "starting mirror run",
		zap.Int("artifacts", len(artifacts)),
		zap.String("outDir", outDir))

	results := make([]domain.ArtifactResult, len(artifacts))

	var g errgroup.Group
	if p.options.Concurrency > 0 {
		g.SetLimit(p.options.Concurrency)
	}

	for i, artifact := range artifacts {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = domain.ArtifactResult{
					Artifact:  artifact,
					Status:    domain.ArtifactStatusFailed,
					LastError: fmt.Sprintf("run canceled: %v", err),
				}
				p.markSkipped()

				return nil
			}

			p.markStarted()
			results[i] = p.worker.Process(ctx, artifact, outDir)
			p.settle(results[i].Status)

			return nil
		})
	}

	// jobs never return errors; failures live in their results
	_ = g.Wait()

	report := domain.Report{
		RunID:      runID,
		OutDir:     outDir,
		Results:    results,
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
	}

	progress := p.Status()
	logger.Info(ctx, "mirror run finished",
		zap.Int("completed", progress.Completed),
		zap.Int("failed", progress.Failed),
		zap.Duration("duration", report.FinishedAt.Sub(report.StartedAt)))

	return report, nil
}

// Status returns a snapshot of the current run's progress.
func (p *pipeline) Status() domain.Progress {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.progress
}

// markSkipped records an artifact that never started because the run was
// canceled.
func (p *pipeline) markSkipped() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.progress.Failed++
}

// markStarted records that one artifact job entered processing.
func (p *pipeline) markStarted() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.progress.InFlight++
}

// settle records the terminal status of one artifact job.
func (p *pipeline) settle(status domain.ArtifactStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.progress.InFlight > 0 {
		p.progress.InFlight--
	}
	if status == domain.ArtifactStatusCompleted {
		p.progress.Completed++
	} else {
		p.progress.Failed++
	}
}
