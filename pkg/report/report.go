// Package report serializes the machine-readable record of a mirror run that
// is written into the output directory next to the artifacts.
package report

import (
	"fmt"
	"mirror/pkg/domain"
	"os"
	"path/filepath"
	"time"

	"github.com/go-faster/jx"
)

// FileName is the name of the report file inside the output directory.
const FileName = "mirror-report.json"

// Encode renders the report as JSON.
func Encode(r domain.Report) []byte {
	var e jx.Encoder

	e.Obj(func(e *jx.Encoder) {
		e.Field("runId", func(e *jx.Encoder) { e.Str(r.RunID.String()) })
		e.Field("outDir", func(e *jx.Encoder) { e.Str(r.OutDir) })
		e.Field("startedAt", func(e *jx.Encoder) { e.Str(r.StartedAt.UTC().Format(time.RFC3339)) })
		e.Field("finishedAt", func(e *jx.Encoder) { e.Str(r.FinishedAt.UTC().Format(time.RFC3339)) })
		e.Field("failed", func(e *jx.Encoder) { e.Bool(r.Failed()) })
		e.Field("results", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, res := range r.Results {
					encodeResult(e, res)
				}
			})
		})
	})

	return e.Bytes()
}

func encodeResult(e *jx.Encoder, res domain.ArtifactResult) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("name", func(e *jx.Encoder) { e.Str(res.Artifact.Name) })
		e.Field("url", func(e *jx.Encoder) { e.Str(res.Artifact.URL) })
		e.Field("sha256", func(e *jx.Encoder) { e.Str(res.Artifact.SHA256) })
		e.Field("status", func(e *jx.Encoder) { e.Str(string(res.Status)) })

		if res.OutputPath != "" {
			e.Field("outputPath", func(e *jx.Encoder) { e.Str(res.OutputPath) })
		}
		if res.OutputSHA256 != "" {
			e.Field("outputSha256", func(e *jx.Encoder) { e.Str(res.OutputSHA256) })
		}

		e.Field("downloadedBytes", func(e *jx.Encoder) { e.Int64(res.DownloadedBytes) })
		e.Field("outputBytes", func(e *jx.Encoder) { e.Int64(res.OutputBytes) })
		e.Field("downloadMs", func(e *jx.Encoder) { e.Int64(res.DownloadDuration.Milliseconds()) })
		e.Field("recompressMs", func(e *jx.Encoder) { e.Int64(res.RecompressDuration.Milliseconds()) })

		if res.LastError != "" {
			e.Field("error", func(e *jx.Encoder) { e.Str(res.LastError) })
		}
	})
}

// WriteFile writes the encoded report into the run's output directory and
// returns its path.
func WriteFile(r domain.Report) (string, error) {
	path := filepath.Join(r.OutDir, FileName)
	if err := os.WriteFile(path, Encode(r), 0o644); err != nil {
		return "", fmt.Errorf("could not write report: %w", err)
	}

	return path, nil
}
