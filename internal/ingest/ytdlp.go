package ingest

import (
	"context"

	"clipper/internal/services/ytdlp"
)

// FromYTDLP adapts a yt-dlp client to the Fetcher interface. The item id is
// the extractor's video id.
func FromYTDLP(client *ytdlp.Client) Fetcher {
	return FetcherFunc(func(ctx context.Context, locator string) (Fetched, error) {
		dl, err := client.Download(ctx, locator)
		return Fetched{Path: dl.Path, ItemID: dl.VideoID}, err
	})
}
