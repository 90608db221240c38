package youtube

import (
	"errors"
	"fmt"
	"strings"
)

// VideoRef identifies a single video. Two refs are the same video when their IDs match.
type VideoRef struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// NewVideoRef builds a ref with the canonical watch URL for id.
func NewVideoRef(id, title string) VideoRef {
	return VideoRef{ID: id, URL: WatchURL(id), Title: strings.TrimSpace(title)}
}

// DisplayTitle returns the title, or the video ID when no title is known.
func (v VideoRef) DisplayTitle() string {
	if v.Title != "" {
		return v.Title
	}
	return v.ID
}

// WatchURL returns the canonical watch URL for a video ID.
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}

// LocatorKind is the kind of input a URL points at.
type LocatorKind int

const (
	KindSingleVideo LocatorKind = iota + 1
	KindPlaylist
	KindChannelSearch
)

func (k LocatorKind) String() string {
	switch k {
	case KindSingleVideo:
		return "video"
	case KindPlaylist:
		return "playlist"
	case KindChannelSearch:
		return "channel_search"
	default:
		return "unknown"
	}
}

// Locator is the classified form of an input URL.
type Locator struct {
	Kind LocatorKind
	// URL is the canonical https://www.youtube.com form of the input.
	URL string
	// VideoID is set for KindSingleVideo.
	VideoID string
	// PlaylistID is set for KindPlaylist.
	PlaylistID string
	// Channel is "@handle" or "c/name" for KindChannelSearch.
	Channel string
	// Query is the search term for KindChannelSearch.
	Query string
}

// Video returns the single video a KindSingleVideo locator points at.
func (l Locator) Video() VideoRef {
	return NewVideoRef(l.VideoID, "")
}

var (
	// ErrUnsupportedURL is returned when a URL matches none of the recognized patterns.
	ErrUnsupportedURL = errors.New("unsupported url")
	// ErrDiscovery is the sentinel wrapped by every DiscoveryError.
	ErrDiscovery = errors.New("link discovery failed")
	// ErrLocatorNotSupported is returned by a discoverer that does not handle a locator kind.
	ErrLocatorNotSupported = errors.New("locator kind not supported by discoverer")
)

// UnsupportedURLError reports the URL that could not be classified.
type UnsupportedURLError struct {
	URL    string
	Reason string
}

func (e *UnsupportedURLError) Error() string {
	return fmt.Sprintf("unsupported url %q: %s", e.URL, e.Reason)
}

func (e *UnsupportedURLError) Unwrap() error {
	return ErrUnsupportedURL
}

// StrategyError is the failure of one discovery strategy.
type StrategyError struct {
	Strategy string
	Err      error
}

func (e StrategyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Strategy, e.Err)
}

// DiscoveryError is a terminal failure to list videos for a playlist or search.
type DiscoveryError struct {
	URL    string
	Reason string
	// Attempts holds the failure of each strategy that was tried, in order.
	Attempts []StrategyError
}

func (e *DiscoveryError) Error() string {
	if len(e.Attempts) == 0 {
		return fmt.Sprintf("discovery failed for %s: %s", e.URL, e.Reason)
	}
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, a.Error())
	}
	return fmt.Sprintf("discovery failed for %s: %s (%s)", e.URL, e.Reason, strings.Join(parts, "; "))
}

func (e *DiscoveryError) Unwrap() error {
	return ErrDiscovery
}
