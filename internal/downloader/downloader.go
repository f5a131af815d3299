// Package downloader defines the Feed Worker's external collaborator
// boundary. It intentionally imports no parsing library: the worker
// depends only on this interface, and the default implementation lives in
// internal/feedfetch so alternate fetchers can be swapped in without
// touching the worker.
package downloader

import (
	"context"
	"fmt"
	"time"
)

// RawEntry is one item parsed out of a feed, in the shape the worker needs
// to dedupe and persist it. PublishedAt must be normalized to UTC by the
// Downloader implementation before it is returned.
type RawEntry struct {
	OriginalID  string
	Title       string
	Summary     string
	Link        string
	PublishedAt time.Time
}

// Downloader fetches and parses a feed URL into its entries. Implementations
// should treat ctx cancellation/timeout as a fetch failure, not a panic.
type Downloader interface {
	Download(ctx context.Context, feedURL string) ([]RawEntry, error)
}

// Func adapts a plain function to a Downloader, mirroring the stdlib
// http.HandlerFunc pattern, for tests that only need a closure.
type Func func(ctx context.Context, feedURL string) ([]RawEntry, error)

func (f Func) Download(ctx context.Context, feedURL string) ([]RawEntry, error) {
	return f(ctx, feedURL)
}

// ParseError wraps a feed-fetch failure with the URL that caused it, so
// callers can log it without re-deriving context.
type ParseError struct {
	FeedURL string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("download feed %s: %v", e.FeedURL, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
