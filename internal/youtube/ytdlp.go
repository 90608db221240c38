package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

// CommandRunner runs yt-dlp with the given arguments and returns stdout.
type CommandRunner interface {
	Run(ctx context.Context, args ...string) ([]byte, error)
}

// YtDlpDiscoverer lists playlist and search entries with yt-dlp in flat mode,
// so no per-video metadata is fetched.
type YtDlpDiscoverer struct {
	runner CommandRunner
}

// NewYtDlpDiscoverer creates a discoverer backed by runner.
func NewYtDlpDiscoverer(runner CommandRunner) *YtDlpDiscoverer {
	return &YtDlpDiscoverer{runner: runner}
}

// Name implements Discoverer.
func (d *YtDlpDiscoverer) Name() string {
	return "yt-dlp"
}

type flatPlaylist struct {
	Entries []flatEntry `json:"entries"`
}

type flatEntry struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
	IEKey string `json:"ie_key"`
}

// Discover implements Discoverer.
func (d *YtDlpDiscoverer) Discover(ctx context.Context, loc Locator, max int) ([]VideoRef, error) {
	if loc.Kind != KindPlaylist && loc.Kind != KindChannelSearch {
		return nil, ErrLocatorNotSupported
	}

	out, err := d.runner.Run(ctx,
		"--flat-playlist",
		"--dump-single-json",
		"--playlist-end", strconv.Itoa(max),
		loc.URL,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}

	var listing flatPlaylist
	if err := json.Unmarshal(out, &listing); err != nil {
		return nil, fmt.Errorf("failed to parse yt-dlp output: %w", err)
	}

	refs := make([]VideoRef, 0, len(listing.Entries))
	for _, e := range listing.Entries {
		// Search pages can list channels and playlists next to videos.
		if e.IEKey != "" && e.IEKey != "Youtube" {
			continue
		}
		if e.ID == "" {
			continue
		}
		refs = append(refs, NewVideoRef(e.ID, e.Title))
	}
	return refs, nil
}
