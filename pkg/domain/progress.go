package domain

import "time"

// Progress is a point-in-time snapshot of a mirror run, exposed by the debug
// server while the run is in progress.
type Progress struct {
	// RunID identifies the run being observed. Zero when no run has started.
	RunID RunID `json:"runId"`

	// Total is the number of artifacts in the run.
	Total int `json:"total"`
	// InFlight is the number of artifacts currently being processed.
	InFlight int `json:"inFlight"`
	// Completed is the number of artifacts mirrored so far.
	Completed int `json:"completed"`
	// Failed is the number of artifacts that have failed so far.
	Failed int `json:"failed"`

	// StartedAt is when the run began. Zero when no run has started.
	StartedAt time.Time `json:"startedAt"`
}
