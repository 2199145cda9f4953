package mirror

import (
	"context"
	"mirror/pkg/domain"
)

//go:generate mockgen -package mockmirror -source=interface.go -destination=mock/mockmirror.go *
type Pipeline interface {
	// Run mirrors all artifacts into outDir and returns the run report.
	// Individual artifact failures are recorded in the report; the returned
	// error is reserved for failures of the run itself.
	Run(ctx context.Context, artifacts []domain.Artifact, outDir string) (domain.Report, error)

	// Status returns a snapshot of the run currently in progress.
	Status() domain.Progress
}
