package downloader

import (
	"context"

	"github.com/olivertz/playlist-sync/internal/domain"
)

// PlaylistLister obtains the ordered remote item list for a source URL.
type PlaylistLister interface {
	Fetch(ctx context.Context, url string) (domain.Playlist, error)
}

// ItemFetcher downloads one remote item into the working directory,
// named so the identifier is recoverable from the filename.
type ItemFetcher interface {
	FetchItem(ctx context.Context, item domain.RemoteItem, album string) error
}
