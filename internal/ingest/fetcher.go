package ingest

import "context"

// Fetched is a media file retrieved for a locator.
type Fetched struct {
	Path   string
	ItemID string
}

// Fetcher retrieves the media behind a locator. Implementations must be
// safe for concurrent calls with different locators.
type Fetcher interface {
	Fetch(ctx context.Context, locator string) (Fetched, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, locator string) (Fetched, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, locator string) (Fetched, error) {
	return f(ctx, locator)
}
