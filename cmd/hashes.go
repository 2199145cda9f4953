package main

import (
	"context"
	"fmt"
	"mirror/pkg/checksum"
	"mirror/pkg/logger"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// sidecarPaths returns the checksum sidecar files in dir, sorted by name.
func sidecarPaths(dir string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*"+checksum.SidecarSuffix))
	if err != nil {
		return nil, fmt.Errorf("could not list sidecars: %w", err)
	}
	sort.Strings(paths)

	return paths, nil
}

func hashesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hashes <out-dir>",
		Short: "Prints the checksum sidecar entries of a mirrored output directory",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()

			paths, err := sidecarPaths(args[0])
			if err != nil {
				logger.Fatal(ctx, "could not list sidecars", zap.Error(err))
			}
			if len(paths) == 0 {
				logger.Warn(ctx, "no checksum sidecars found", zap.String("dir", args[0]))
			}

			for _, path := range paths {
				digest, name, err := checksum.ReadSidecar(path)
				if err != nil {
					logger.Fatal(ctx, "could not read sidecar", zap.String("path", path), zap.Error(err))
				}

				fmt.Printf("%s  %s\n", digest, name) //nolint: forbidigo
			}
		},
	}
}
