package domain

import (
	"time"

	"github.com/google/uuid"
)

// RunID uniquely identifies a mirror run.
// It wraps uuid.UUID to provide type safety at the domain layer.
type RunID uuid.UUID

// String returns the canonical textual form of the run ID.
func (id RunID) String() string { return uuid.UUID(id).String() }

// NewRunID generates a fresh random run ID.
func NewRunID() RunID { return RunID(uuid.New()) }

// Report summarizes a whole mirror run: which artifacts were requested,
// what happened to each, and when the run started and finished. It is
// written to the output directory as a machine-readable record of the run.
type Report struct {
	// RunID is the unique identifier of the run.
	RunID RunID `json:"runId"`

	// OutDir is the output directory artifacts were written to.
	OutDir string `json:"outDir"`

	// Results holds one entry per manifest artifact, in manifest order.
	Results []ArtifactResult `json:"results"`

	// StartedAt is the time when the run began.
	StartedAt time.Time `json:"startedAt"`
	// FinishedAt is the time when the last artifact settled.
	FinishedAt time.Time `json:"finishedAt"`
}

// Failed reports whether any artifact in the run did not complete.
func (r Report) Failed() bool {
	for _, res := range r.Results {
		if res.Status != ArtifactStatusCompleted {
			return true
		}
	}

	return false
}

// OutputPaths returns the produced file paths of completed artifacts, in
// manifest order.
func (r Report) OutputPaths() []string {
	paths := make([]string, 0, len(r.Results))
	for _, res := range r.Results {
		if res.Status == ArtifactStatusCompleted {
			paths = append(paths, res.OutputPath)
		}
	}

	return paths
}
