package mirror_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mirror/internal/config"
	"mirror/internal/mirror"
	"mirror/pkg/domain"
	"mirror/pkg/logger"
	"mirror/pkg/serrors"
)

func TestMain(m *testing.M) {
	logger.Setup(logger.DevelopmentEnvironment)
	m.Run()
}

// fakeWorker settles artifacts according to the fail set and tracks how many
// jobs run concurrently.
type fakeWorker struct {
	fail  map[string]bool
	delay time.Duration

	mu            sync.Mutex
	inFlight      int
	maxInFlight   int
	processedURLs []string
}

func (f *fakeWorker) Process(_ context.Context, artifact domain.Artifact, outDir string) domain.ArtifactResult {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.processedURLs = append(f.processedURLs, artifact.URL)
	f.mu.Unlock()

	time.Sleep(f.delay)

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()

	if f.fail[artifact.URL] {
		return domain.ArtifactResult{
			Artifact:  artifact,
			Status:    domain.ArtifactStatusFailed,
			LastError: "synthetic failure",
		}
	}

	return domain.ArtifactResult{
		Artifact:   artifact,
		Status:     domain.ArtifactStatusCompleted,
		OutputPath: filepath.Join(outDir, artifact.OutputName()),
	}
}

func testArtifacts(n int) []domain.Artifact {
	artifacts := make([]domain.Artifact, n)
	for i := range artifacts {
		artifacts[i] = domain.Artifact{
			Name: fmt.Sprintf("tool-%d.tar.xz", i),
			URL:  fmt.Sprintf("https://releases.example.com/tool-%d.tar.xz", i),
		}
	}

	return artifacts
}

func TestPipeline_Run_AllCompleted(t *testing.T) {
	w := &fakeWorker{}
	p := mirror.New(w, mirror.Options{})

	outDir := filepath.Join(t.TempDir(), "out")
	report, err := p.Run(context.Background(), testArtifacts(3), outDir)
	require.NoError(t, err)

	require.False(t, report.Failed())
	require.Len(t, report.Results, 3)
	require.DirExists(t, outDir, "output directory must be created")

	// results keep manifest order regardless of completion order
	for i, res := range report.Results {
		require.Equal(t, fmt.Sprintf("tool-%d.tar.xz", i), res.Artifact.Name)
		require.Equal(t, domain.ArtifactStatusCompleted, res.Status)
	}
	require.Len(t, report.OutputPaths(), 3)

	progress := p.Status()
	require.Equal(t, 3, progress.Total)
	require.Equal(t, 3, progress.Completed)
	require.Equal(t, 0, progress.Failed)
	require.Equal(t, 0, progress.InFlight)
}

func TestPipeline_Run_PartialFailure(t *testing.T) {
	w := &fakeWorker{fail: map[string]bool{
		"https://releases.example.com/tool-1.tar.xz": true,
	}}
	p := mirror.New(w, mirror.Options{})

	report, err := p.Run(context.Background(), testArtifacts(3), t.TempDir())
	require.NoError(t, err, "artifact failures must not fail the run itself")

	require.True(t, report.Failed())
	require.Equal(t, domain.ArtifactStatusCompleted, report.Results[0].Status)
	require.Equal(t, domain.ArtifactStatusFailed, report.Results[1].Status)
	require.Equal(t, domain.ArtifactStatusCompleted, report.Results[2].Status)
	require.Len(t, report.OutputPaths(), 2, "failed artifacts must not contribute output paths")
}

func TestPipeline_Run_RespectsConcurrencyLimit(t *testing.T) {
	w := &fakeWorker{delay: 20 * time.Millisecond}
	p := mirror.New(w, mirror.Options{Concurrency: 2})

	_, err := p.Run(context.Background(), testArtifacts(6), t.TempDir())
	require.NoError(t, err)
	require.LessOrEqual(t, w.maxInFlight, 2)
	require.Len(t, w.processedURLs, 6)
}

func TestPipeline_Run_EmptyManifest(t *testing.T) {
	p := mirror.New(&fakeWorker{}, mirror.Options{})

	_, err := p.Run(context.Background(), nil, t.TempDir())
	require.ErrorIs(t, err, serrors.ErrBadRequest)
}

func TestPipeline_Run_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := &fakeWorker{}
	p := mirror.New(w, mirror.Options{Concurrency: 1})

	report, err := p.Run(ctx, testArtifacts(4), t.TempDir())
	require.NoError(t, err)

	require.True(t, report.Failed())
	for _, res := range report.Results {
		require.Equal(t, domain.ArtifactStatusFailed, res.Status)
		require.Contains(t, res.LastError, "run canceled")
	}
	require.Empty(t, w.processedURLs, "no artifact may start on a canceled context")
}

func TestPipeline_Run_BadOutDir(t *testing.T) {
	// a file where the output directory should be
	outDir := filepath.Join(t.TempDir(), "taken")
	require.NoError(t, os.WriteFile(outDir, []byte("file"), 0o644))

	p := mirror.New(&fakeWorker{}, mirror.Options{})
	_, err := p.Run(context.Background(), testArtifacts(1), outDir)
	require.Error(t, err)
}

func TestNewOptions(t *testing.T) {
	cfg := &config.Config{}
	cfg.Mirror.Concurrency = 4

	require.Equal(t, 4, mirror.NewOptions(cfg).Concurrency)
}
