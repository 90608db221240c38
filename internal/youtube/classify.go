package youtube

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	videoIDPattern    = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	playlistIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

// Classify parses a YouTube URL into a Locator.
//
// Recognized forms are watch URLs, youtu.be short links, shorts and embed
// links, playlist URLs and channel search pages (/@handle/search?query= and
// /c/name/search?query=). A scheme and the www. or m. prefix are optional.
// Anything else fails with an *UnsupportedURLError.
func Classify(raw string) (Locator, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Locator{}, &UnsupportedURLError{URL: raw, Reason: "empty url"}
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return Locator{}, &UnsupportedURLError{URL: raw, Reason: err.Error()}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Locator{}, &UnsupportedURLError{URL: raw, Reason: "scheme must be http or https"}
	}

	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	host = strings.TrimPrefix(host, "m.")

	segments := splitPath(u.Path)

	switch host {
	case "youtu.be":
		if len(segments) == 0 {
			return Locator{}, &UnsupportedURLError{URL: raw, Reason: "short link has no video id"}
		}
		return singleVideo(raw, segments[0])
	case "youtube.com":
	default:
		return Locator{}, &UnsupportedURLError{URL: raw, Reason: "not a youtube host"}
	}

	query := u.Query()

	if len(segments) == 0 {
		return Locator{}, &UnsupportedURLError{URL: raw, Reason: "no path"}
	}

	switch {
	case segments[0] == "watch" && len(segments) == 1:
		if v := query.Get("v"); v != "" {
			return singleVideo(raw, v)
		}
		if list := query.Get("list"); list != "" {
			return playlist(raw, list)
		}
		return Locator{}, &UnsupportedURLError{URL: raw, Reason: "watch url has no v parameter"}

	case (segments[0] == "shorts" || segments[0] == "embed" || segments[0] == "live") && len(segments) == 2:
		return singleVideo(raw, segments[1])

	case segments[0] == "playlist" && len(segments) == 1:
		return playlist(raw, query.Get("list"))

	case strings.HasPrefix(segments[0], "@") && len(segments) == 2 && segments[1] == "search":
		return channelSearch(raw, segments[0], query.Get("query"))

	case segments[0] == "c" && len(segments) == 3 && segments[2] == "search":
		return channelSearch(raw, "c/"+segments[1], query.Get("query"))
	}

	return Locator{}, &UnsupportedURLError{URL: raw, Reason: "unrecognized youtube url pattern"}
}

// ValidVideoID reports whether id has the shape of a video ID.
func ValidVideoID(id string) bool {
	return videoIDPattern.MatchString(id)
}

func splitPath(p string) []string {
	var out []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func singleVideo(raw, id string) (Locator, error) {
	if !videoIDPattern.MatchString(id) {
		return Locator{}, &UnsupportedURLError{URL: raw, Reason: "invalid video id"}
	}
	return Locator{
		Kind:    KindSingleVideo,
		URL:     WatchURL(id),
		VideoID: id,
	}, nil
}

func playlist(raw, id string) (Locator, error) {
	if id == "" || !playlistIDPattern.MatchString(id) {
		return Locator{}, &UnsupportedURLError{URL: raw, Reason: "missing or invalid playlist id"}
	}
	return Locator{
		Kind:       KindPlaylist,
		URL:        "https://www.youtube.com/playlist?list=" + id,
		PlaylistID: id,
	}, nil
}

func channelSearch(raw, channel, term string) (Locator, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return Locator{}, &UnsupportedURLError{URL: raw, Reason: "channel search has no query"}
	}
	if channel == "@" || channel == "c/" {
		return Locator{}, &UnsupportedURLError{URL: raw, Reason: "missing channel name"}
	}
	return Locator{
		Kind:    KindChannelSearch,
		URL:     "https://www.youtube.com/" + channel + "/search?query=" + url.QueryEscape(term),
		Channel: channel,
		Query:   term,
	}, nil
}
