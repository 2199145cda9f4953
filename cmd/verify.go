package main

import (
	"context"
	"fmt"
	"mirror/pkg/checksum"
	"mirror/pkg/logger"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func verifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <out-dir>",
		Short: "Recomputes digests of mirrored files and checks them against their sidecars",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			dir := args[0]

			paths, err := sidecarPaths(dir)
			if err != nil {
				logger.Fatal(ctx, "could not list sidecars", zap.Error(err))
			}
			if len(paths) == 0 {
				logger.Fatal(ctx, "no checksum sidecars found", zap.String("dir", dir))
			}

			failures := 0
			for _, path := range paths {
				digest, name, err := checksum.ReadSidecar(path)
				if err != nil {
					logger.Error(ctx, "could not read sidecar", zap.String("path", path), zap.Error(err))
					failures++

					continue
				}

				if err := checksum.Verify(filepath.Join(dir, name), digest); err != nil {
					logger.Error(ctx, "verification failed", zap.String("file", name), zap.Error(err))
					failures++

					continue
				}

				fmt.Printf("%s: OK\n", name) //nolint: forbidigo
			}

			if failures > 0 {
				logger.Fatal(ctx, "verification finished with failures", zap.Int("failures", failures))
			}
		},
	}
}
