// Package httpfetch provides a fetcher.Client implementation backed by
// net/http with exponential-backoff retries for transient upstream failures.
package httpfetch

import (
	"context"
	"fmt"
	"io"
	"mirror/pkg/fetcher"
	"mirror/pkg/logger"
	"mirror/pkg/serrors"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// Options configure the HTTP fetch client.
type Options struct {
	// MaxRetries is the number of retries after the first attempt for
	// transient failures (transport errors, 5xx, 429).
	MaxRetries uint64
	// InitialBackoff is the first retry delay. Subsequent delays grow
	// exponentially with jitter. Zero picks the backoff library default.
	InitialBackoff time.Duration
}

// Client downloads artifact content over HTTP(S) and fulfills the
// fetcher.Client interface. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	opts       Options
}

// New constructs a Client that uses the provided http.Client for requests.
func New(httpClient *http.Client, opts Options) *Client {
	return &Client{
		httpClient: httpClient,
		opts:       opts,
	}
}

// Fetch streams the body of URL into dst. Transient failures rewind the spool
// and restart the download; permanent failures (4xx other than 429) abort
// immediately. The returned Info reflects the successful attempt.
func (c *Client) Fetch(ctx context.Context, URL string, dst fetcher.Spool) (fetcher.Info, error) {
	var info fetcher.Info

	attempt := func() error {
		// Drop any partial body from a previous attempt.
		if _, err := dst.Seek(0, io.SeekStart); err != nil {
			return backoff.Permanent(fmt.Errorf("could not rewind spool: %w", err))
		}
		if err := dst.Truncate(0); err != nil {
			return backoff.Permanent(fmt.Errorf("could not truncate spool: %w", err))
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, URL, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("could not create request: %w", err))
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("could not send request: %w", err)
		}
		defer func() {
			_ = resp.Body.Close()
		}()

		if err := statusError(resp); err != nil {
			return err
		}

		n, err := io.Copy(dst, resp.Body)
		if err != nil {
			return fmt.Errorf("could not read response body: %w", err)
		}

		info = fetcher.Info{Size: n, StatusCode: resp.StatusCode}

		return nil
	}

	bo := backoff.NewExponentialBackOff()
	if c.opts.InitialBackoff > 0 {
		bo.InitialInterval = c.opts.InitialBackoff
	}

	err := backoff.RetryNotify(attempt,
		backoff.WithContext(backoff.WithMaxRetries(bo, c.opts.MaxRetries), ctx),
		func(err error, next time.Duration) {
			logger.Warn(ctx, "download attempt failed, retrying",
				zap.String("url", URL),
				zap.Duration("backoff", next),
				zap.Error(err))
		})
	if err != nil {
		return fetcher.Info{}, fmt.Errorf("could not fetch %s: %w", URL, err)
	}

	return info, nil
}

// statusError maps a non-2xx response to a semantic error. 429 and 5xx are
// retryable; other 4xx are permanent.
func statusError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	// The body of an error response is small; read it for the message.
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	msg := strings.TrimSpace(string(b))

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return serrors.With(serrors.ErrRateLimited, "rate limited: %s", msg)
	case resp.StatusCode == http.StatusNotFound:
		return backoff.Permanent(serrors.With(serrors.ErrNotFound, "artifact not found: %s", msg))
	case resp.StatusCode >= 500:
		return serrors.With(serrors.ErrUnavailable, "upstream returned %d: %s", resp.StatusCode, msg)
	default:
		return backoff.Permanent(fmt.Errorf("fetch failed with status %d: %s", resp.StatusCode, msg))
	}
}

// Ensure Client conforms to the fetcher.Client interface at compile time.
var _ fetcher.Client = (*Client)(nil)
