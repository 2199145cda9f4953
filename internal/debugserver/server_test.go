package debugserver_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mirror/internal/config"
	"mirror/internal/debugserver"
	"mirror/pkg/domain"
	"mirror/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Setup(logger.DevelopmentEnvironment)
	m.Run()
}

// staticSource serves a fixed progress snapshot.
type staticSource struct {
	progress domain.Progress
}

func (s staticSource) Status() domain.Progress { return s.progress }

func newTestServer(t *testing.T, src debugserver.StatusSource) *http.Server {
	t.Helper()

	cfg := &config.Config{}
	cfg.HTTP.Addr = ":0"
	cfg.HTTP.MetricsPath = "/metrics"

	return debugserver.NewServer(context.Background(), src, debugserver.NewOptions(cfg))
}

func TestServer_Healthz(t *testing.T) {
	srv := newTestServer(t, staticSource{})

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok\n", rec.Body.String())
}

func TestServer_Metrics(t *testing.T) {
	srv := newTestServer(t, staticSource{})

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Body.String())
}

func TestServer_Status(t *testing.T) {
	src := staticSource{progress: domain.Progress{
		RunID:     domain.NewRunID(),
		Total:     4,
		InFlight:  1,
		Completed: 2,
		Failed:    1,
		StartedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}}
	srv := newTestServer(t, src)

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got struct {
		RunID     string `json:"runId"`
		Total     int    `json:"total"`
		InFlight  int    `json:"inFlight"`
		Completed int    `json:"completed"`
		Failed    int    `json:"failed"`
		StartedAt string `json:"startedAt"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, src.progress.RunID.String(), got.RunID)
	require.Equal(t, 4, got.Total)
	require.Equal(t, 1, got.InFlight)
	require.Equal(t, 2, got.Completed)
	require.Equal(t, 1, got.Failed)
	require.Equal(t, "2025-03-01T12:00:00Z", got.StartedAt)
}

func TestServer_StatusRejectsNonGet(t *testing.T) {
	srv := newTestServer(t, staticSource{})

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/status", nil))

	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
