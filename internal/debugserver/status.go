package debugserver

import (
	"net/http"
	"time"

	"github.com/go-faster/jx"
)

// StatusHandler returns a handler that renders the current run progress as
// JSON. All fields come from the pipeline's live snapshot.
func StatusHandler(src StatusSource) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)

			return
		}

		progress := src.Status()

		var e jx.Encoder
		e.Obj(func(e *jx.Encoder) {
			e.Field("runId", func(e *jx.Encoder) { e.Str(progress.RunID.String()) })
			e.Field("total", func(e *jx.Encoder) { e.Int(progress.Total) })
			e.Field("inFlight", func(e *jx.Encoder) { e.Int(progress.InFlight) })
			e.Field("completed", func(e *jx.Encoder) { e.Int(progress.Completed) })
			e.Field("failed", func(e *jx.Encoder) { e.Int(progress.Failed) })
			e.Field("startedAt", func(e *jx.Encoder) { e.Str(progress.StartedAt.UTC().Format(time.RFC3339)) })
		})

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(e.Bytes())
	})
}
