package youtube

import (
	"context"
	"fmt"
	"html"
	"strings"

	"google.golang.org/api/option"
	ytapi "google.golang.org/api/youtube/v3"
)

// DataAPIDiscoverer lists playlist items and channel search results through
// the YouTube Data API v3. It needs an API key.
type DataAPIDiscoverer struct {
	service *ytapi.Service
}

// NewDataAPIDiscoverer creates a discoverer authenticated with apiKey.
// Extra client options (an endpoint override, an HTTP client) are appended.
func NewDataAPIDiscoverer(ctx context.Context, apiKey string, opts ...option.ClientOption) (*DataAPIDiscoverer, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := ytapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube data api client: %w", err)
	}
	return &DataAPIDiscoverer{service: svc}, nil
}

// Name implements Discoverer.
func (d *DataAPIDiscoverer) Name() string {
	return "youtube-data-api"
}

// Discover implements Discoverer.
func (d *DataAPIDiscoverer) Discover(ctx context.Context, loc Locator, max int) ([]VideoRef, error) {
	switch loc.Kind {
	case KindPlaylist:
		return d.playlistItems(ctx, loc.PlaylistID, max)
	case KindChannelSearch:
		channelID, err := d.resolveChannel(ctx, loc.Channel)
		if err != nil {
			return nil, err
		}
		return d.searchChannel(ctx, channelID, loc.Query, max)
	default:
		return nil, ErrLocatorNotSupported
	}
}

func (d *DataAPIDiscoverer) playlistItems(ctx context.Context, playlistID string, max int) ([]VideoRef, error) {
	resp, err := d.service.PlaylistItems.List([]string{"snippet"}).
		PlaylistId(playlistID).
		MaxResults(int64(max)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("playlistItems.list: %w", err)
	}

	refs := make([]VideoRef, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Snippet == nil || item.Snippet.ResourceId == nil {
			continue
		}
		// Deleted and private entries keep their slot but have no usable title.
		if item.Snippet.Title == "Private video" || item.Snippet.Title == "Deleted video" {
			continue
		}
		refs = append(refs, NewVideoRef(item.Snippet.ResourceId.VideoId, item.Snippet.Title))
	}
	return refs, nil
}

// resolveChannel turns "@handle" or "c/name" into a channel ID.
func (d *DataAPIDiscoverer) resolveChannel(ctx context.Context, channel string) (string, error) {
	call := d.service.Channels.List([]string{"id"}).Context(ctx)
	var name string
	switch {
	case strings.HasPrefix(channel, "@"):
		name = channel
		call = call.ForHandle(channel)
	case strings.HasPrefix(channel, "c/"):
		name = strings.TrimPrefix(channel, "c/")
		call = call.ForUsername(name)
	default:
		return "", fmt.Errorf("unrecognized channel reference %q", channel)
	}

	resp, err := call.Do()
	if err != nil {
		return "", fmt.Errorf("channels.list: %w", err)
	}
	if len(resp.Items) > 0 {
		return resp.Items[0].Id, nil
	}

	// Custom /c/ names are not usernames for most channels; fall back to a channel search.
	found, err := d.service.Search.List([]string{"snippet"}).
		Q(strings.TrimPrefix(name, "@")).
		Type("channel").
		MaxResults(1).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("search.list for channel: %w", err)
	}
	if len(found.Items) == 0 || found.Items[0].Id == nil || found.Items[0].Id.ChannelId == "" {
		return "", fmt.Errorf("channel %q not found", channel)
	}
	return found.Items[0].Id.ChannelId, nil
}

func (d *DataAPIDiscoverer) searchChannel(ctx context.Context, channelID, query string, max int) ([]VideoRef, error) {
	resp, err := d.service.Search.List([]string{"snippet"}).
		ChannelId(channelID).
		Q(query).
		Type("video").
		MaxResults(int64(max)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("search.list: %w", err)
	}

	refs := make([]VideoRef, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" {
			continue
		}
		title := ""
		if item.Snippet != nil {
			// Search snippets come back HTML-escaped.
			title = html.UnescapeString(item.Snippet.Title)
		}
		refs = append(refs, NewVideoRef(item.Id.VideoId, title))
	}
	return refs, nil
}
