package youtube

import (
	"context"
	"errors"
	"fmt"

	ytdl "github.com/kkdai/youtube/v2"
)

// PlaylistFetcher is the part of the kkdai/youtube client used for playlists.
type PlaylistFetcher interface {
	GetPlaylistContext(ctx context.Context, url string) (*ytdl.Playlist, error)
}

// PlaylistDiscoverer reads playlists through the innertube API.
type PlaylistDiscoverer struct {
	client PlaylistFetcher
}

// NewPlaylistDiscoverer creates a discoverer using client.
func NewPlaylistDiscoverer(client PlaylistFetcher) *PlaylistDiscoverer {
	return &PlaylistDiscoverer{client: client}
}

// Name implements Discoverer.
func (d *PlaylistDiscoverer) Name() string {
	return "innertube-playlist"
}

// Discover implements Discoverer. Only playlists are supported.
func (d *PlaylistDiscoverer) Discover(ctx context.Context, loc Locator, max int) ([]VideoRef, error) {
	if loc.Kind != KindPlaylist {
		return nil, ErrLocatorNotSupported
	}

	playlist, err := d.client.GetPlaylistContext(ctx, loc.URL)
	if err != nil {
		switch {
		case errors.Is(err, ytdl.ErrInvalidPlaylist):
			return nil, fmt.Errorf("playlist is private, empty or does not exist: %w", err)
		case errors.Is(err, ytdl.ErrLoginRequired):
			return nil, fmt.Errorf("playlist requires sign-in: %w", err)
		}
		return nil, fmt.Errorf("failed to fetch playlist: %w", err)
	}

	refs := make([]VideoRef, 0, min(len(playlist.Videos), max))
	for _, entry := range playlist.Videos {
		if entry == nil {
			continue
		}
		refs = append(refs, NewVideoRef(entry.ID, entry.Title))
	}
	return refs, nil
}
