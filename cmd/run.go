package main

import (
	"context"
	"errors"
	"fmt"
	"mirror/internal/config"
	"mirror/internal/debugserver"
	"mirror/internal/manifest"
	"mirror/internal/mirror"
	"mirror/internal/worker"
	"mirror/pkg/fetcher/httpfetch"
	"mirror/pkg/logger"
	"mirror/pkg/metrics"
	"mirror/pkg/recompress"
	"mirror/pkg/report"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
)

// buildPipeline wires the fetch client, recompressor and metrics into a
// runnable pipeline.
func buildPipeline(ctx context.Context, cfg *config.Config) mirror.Pipeline {
	// export instruments through prometheus only when the debug server will
	// actually serve them
	var mp metric.MeterProvider = noop.NewMeterProvider()
	if cfg.HTTP.Addr != "" {
		var err error
		mp, err = metrics.NewMeterProvider()
		if err != nil {
			logger.Fatal(ctx, "could not create meter provider", zap.Error(err))
		}
	}
	pipelineMetrics, err := metrics.NewPipeline(mp)
	if err != nil {
		logger.Fatal(ctx, "could not create pipeline metrics", zap.Error(err))
	}

	recompressor, err := recompress.New(recompress.Options{
		Level:       cfg.Mirror.ZstdLevel,
		Concurrency: cfg.Mirror.ZstdConcurrency,
	})
	if err != nil {
		logger.Fatal(ctx, "could not create recompressor", zap.Error(err))
	}

	fetchClient := httpfetch.New(&http.Client{}, httpfetch.Options{
		MaxRetries:     cfg.Mirror.MaxRetries,
		InitialBackoff: cfg.Mirror.RetryBackoff,
	})

	return mirror.New(worker.New(fetchClient, recompressor, pipelineMetrics), mirror.NewOptions(cfg))
}

// setupDebugServer starts the debug HTTP server when configured and returns a
// shutdown function. With no address configured it is a no-op.
func setupDebugServer(ctx context.Context, cfg *config.Config, src debugserver.StatusSource) func(ctx context.Context) {
	if cfg.HTTP.Addr == "" {
		return func(context.Context) {}
	}

	server := debugserver.NewServer(ctx, src, debugserver.NewOptions(cfg))

	go func() {
		logger.Info(ctx, "starting debug server...", zap.String("addr", cfg.HTTP.Addr))
		if err := server.ListenAndServe(); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				logger.Error(ctx, "could not start debug server", zap.Error(err))
			}
		}
	}()

	return func(ctx context.Context) {
		logger.Info(ctx, "stopping debug server...")
		if err := server.Shutdown(ctx); err != nil {
			logger.Error(ctx, "could not stop debug server", zap.Error(err))
		}
	}
}

func runCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <out-dir>",
		Short: "Downloads, verifies and recompresses all manifest artifacts into the output directory",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			outDir := args[0]

			manifestPath, _ := cmd.Flags().GetString("manifest")
			if manifestPath == "" {
				manifestPath = cfg.Mirror.ManifestPath
			}
			m, err := manifest.Load(manifestPath)
			if err != nil {
				logger.Fatal(ctx, "could not load manifest",
					zap.String("path", manifestPath), zap.Error(err))
			}

			pipeline := buildPipeline(ctx, cfg)

			stopDebugServer := setupDebugServer(ctx, cfg, pipeline)
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GracefulShutdownTimeout)
				defer cancel()

				stopDebugServer(shutdownCtx)
			}()

			runReport, err := pipeline.Run(ctx, m.Artifacts, outDir)
			if err != nil {
				logger.Fatal(ctx, "could not run mirror pipeline", zap.Error(err))
			}

			if _, err := report.WriteFile(runReport); err != nil {
				logger.Error(ctx, "could not write run report", zap.Error(err))
			}

			// the produced paths are the run's stdout contract; everything
			// else goes through the logger
			for _, path := range runReport.OutputPaths() {
				fmt.Println(path) //nolint: forbidigo
			}

			if runReport.Failed() {
				logger.Fatal(ctx, "mirror run finished with failures")
			}
		},
	}

	cmd.Flags().String("manifest", "", "Artifact manifest path (defaults to the configured one)")

	return cmd
}
