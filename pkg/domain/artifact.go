package domain

import (
	"path"
	"strings"
	"time"
)

// ArtifactStatus represents the lifecycle state of a mirrored artifact
// within a run. It can be pending, completed, or failed.
type ArtifactStatus string

const (
	// ArtifactStatusPending indicates the artifact has been scheduled but not processed yet.
	ArtifactStatusPending ArtifactStatus = "PENDING"
	// ArtifactStatusCompleted indicates the artifact was downloaded, verified,
	// recompressed and written to the output directory.
	ArtifactStatusCompleted ArtifactStatus = "COMPLETED"
	// ArtifactStatusFailed indicates processing ended with an error; see LastError for details.
	ArtifactStatusFailed ArtifactStatus = "FAILED"
)

// Artifact describes one upstream file to mirror: where to fetch it from and
// the digest it must have. It is the unit of work for the pipeline.
type Artifact struct {
	// Name is the upstream file name, e.g. "clang+llvm-14.0.0-x86_64-linux-gnu.tar.xz".
	// It is derived from the URL path when the manifest does not set it explicitly.
	Name string `json:"name" yaml:"name"`
	// URL is the address the artifact is downloaded from. Redirects are followed.
	URL string `json:"url" yaml:"url"`
	// SHA256 is the expected hex digest of the upstream file as downloaded,
	// before recompression.
	SHA256 string `json:"sha256" yaml:"sha256"`
}

// OutputName returns the file name the recompressed artifact is written
// under: the upstream name with its final ".xz" extension replaced by ".zst",
// so "foo.tar.xz" becomes "foo.tar.zst".
func (a Artifact) OutputName() string {
	base := a.Name
	if base == "" {
		base = path.Base(a.URL)
	}

	return strings.TrimSuffix(base, path.Ext(base)) + ".zst"
}

// ArtifactResult represents the outcome of mirroring a single artifact.
type ArtifactResult struct {
	// Artifact is the manifest entry this result belongs to.
	Artifact Artifact `json:"artifact"`
	// Status is the final lifecycle state of the artifact in this run.
	Status ArtifactStatus `json:"status"`

	// OutputPath is the absolute or out-dir-relative path of the produced
	// zstd file. Empty when the artifact failed.
	OutputPath string `json:"outputPath,omitempty"`
	// OutputSHA256 is the hex digest of the produced zstd file, as written
	// to the checksum sidecar.
	OutputSHA256 string `json:"outputSha256,omitempty"`

	// DownloadedBytes is the size of the upstream file as downloaded.
	DownloadedBytes int64 `json:"downloadedBytes"`
	// OutputBytes is the size of the produced zstd file.
	OutputBytes int64 `json:"outputBytes"`

	// DownloadDuration covers fetch plus digest verification.
	DownloadDuration time.Duration `json:"downloadDuration"`
	// RecompressDuration covers xz decode, zstd encode and sidecar generation.
	RecompressDuration time.Duration `json:"recompressDuration"`

	// LastError stores the error message for failed artifacts, if any.
	LastError string `json:"error,omitempty"`
}
