// Package fetcher defines the abstraction used to download upstream artifact
// content into a local spool file.
package fetcher

import (
	"context"
	"io"
)

// Info describes a completed download.
type Info struct {
	// Size is the number of body bytes written to the spool.
	Size int64
	// StatusCode is the final HTTP status code after redirects.
	StatusCode int
}

// Spool is the destination a download is streamed into. Implementations must
// support rewinding so a retried attempt can overwrite a partial body.
// *os.File satisfies this interface.
type Spool interface {
	io.WriteSeeker
	Truncate(size int64) error
}

// Client is the abstraction for artifact downloads. Implementations stream
// the body of the given URL into the spool, following redirects.
//
//go:generate mockgen -package mockfetcher -source=interface.go -destination=mock/mockfetcher.go *
type Client interface {
	// Fetch downloads the content at URL into dst. On transient failures the
	// spool is rewound and the download restarted from scratch.
	Fetch(ctx context.Context, URL string, dst Spool) (Info, error)
}
