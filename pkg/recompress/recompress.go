// Package recompress converts xz-compressed streams to zstd. Mirrored
// upstream tarballs ship as .tar.xz; zstd decompresses an order of magnitude
// faster on consumers, so the pipeline re-encodes them once at mirror time.
package recompress

import (
	"fmt"
	"io"
	"mirror/pkg/serrors"
	"runtime"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// DefaultLevel is the zstd encoder level used when none is configured.
// The mirror is write-once read-many, so the slowest, densest level is the default.
const DefaultLevel = "best"

// Options configure the zstd encoder side of the recompressor.
type Options struct {
	// Level is a zstd level name: "fastest", "default", "better" or "best".
	Level string
	// Concurrency is the number of encoder goroutines. Zero means one per CPU.
	Concurrency int
}

// Recompressor converts xz streams to zstd with a fixed encoder
// configuration. It is safe for concurrent use; each Recompress call builds
// its own encoder state.
type Recompressor struct {
	level       zstd.EncoderLevel
	concurrency int
}

// New validates the options and returns a configured Recompressor.
func New(opts Options) (*Recompressor, error) {
	levelName := opts.Level
	if levelName == "" {
		levelName = DefaultLevel
	}
	ok, level := zstd.EncoderLevelFromString(levelName)
	if !ok {
		return nil, serrors.With(serrors.ErrBadRequest, "unknown zstd level: %q", levelName)
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}

	return &Recompressor{
		level:       level,
		concurrency: concurrency,
	}, nil
}

// Recompress reads an xz stream from src and writes the re-encoded zstd
// stream to dst. It returns the number of compressed bytes written to dst.
func (r *Recompressor) Recompress(dst io.Writer, src io.Reader) (int64, error) {
	xzReader, err := xz.NewReader(src)
	if err != nil {
		return 0, fmt.Errorf("could not open xz stream: %w", err)
	}

	counted := &countingWriter{w: dst}
	enc, err := zstd.NewWriter(counted,
		zstd.WithEncoderLevel(r.level),
		zstd.WithEncoderConcurrency(r.concurrency))
	if err != nil {
		return 0, fmt.Errorf("could not create zstd encoder: %w", err)
	}

	if _, err := io.Copy(enc, xzReader); err != nil {
		_ = enc.Close()

		return counted.n, fmt.Errorf("could not recompress stream: %w", err)
	}
	if err := enc.Close(); err != nil {
		return counted.n, fmt.Errorf("could not flush zstd encoder: %w", err)
	}

	return counted.n, nil
}

// countingWriter wraps a writer and counts the bytes that pass through it.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)

	return n, err //nolint: wrapcheck
}
