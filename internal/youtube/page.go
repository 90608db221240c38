package youtube

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// The title of a renderer follows its videoId within the same object, usually
// after a thumbnail block, so the gap is bounded rather than brace-limited.
var pageVideoPattern = regexp.MustCompile(`"videoId":"([A-Za-z0-9_-]{11})".{0,1000}?"title":\{"runs":\[\{"text":"((?:[^"\\]|\\.)+)"`)

const maxPageBytes = 8 << 20

// PageDiscoverer scrapes video links from the ytInitialData blob embedded in
// playlist and channel search pages.
type PageDiscoverer struct {
	client  *http.Client
	baseURL string
}

// NewPageDiscoverer creates a scraping discoverer.
// baseURL replaces https://www.youtube.com and is empty in production.
func NewPageDiscoverer(client *http.Client, baseURL string) *PageDiscoverer {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &PageDiscoverer{client: client, baseURL: strings.TrimSuffix(baseURL, "/")}
}

// Name implements Discoverer.
func (d *PageDiscoverer) Name() string {
	return "page-scrape"
}

// Discover implements Discoverer.
func (d *PageDiscoverer) Discover(ctx context.Context, loc Locator, max int) ([]VideoRef, error) {
	if loc.Kind != KindPlaylist && loc.Kind != KindChannelSearch {
		return nil, ErrLocatorNotSupported
	}

	pageURL := loc.URL
	if d.baseURL != "" {
		pageURL = d.baseURL + strings.TrimPrefix(loc.URL, "https://www.youtube.com")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bad status %d fetching %s", resp.StatusCode, loc.URL)
	}

	data, err := initialData(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, err
	}
	return extractVideoRefs(data, max), nil
}

// initialData returns the text of the script that assigns ytInitialData.
func initialData(r io.Reader) (string, error) {
	z := html.NewTokenizer(r)
	inScript := false
	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				return "", fmt.Errorf("page has no ytInitialData")
			}
			return "", fmt.Errorf("failed to parse page: %w", z.Err())
		case html.StartTagToken:
			name, _ := z.TagName()
			inScript = string(name) == "script"
		case html.EndTagToken:
			inScript = false
		case html.TextToken:
			if !inScript {
				continue
			}
			text := string(z.Text())
			if strings.Contains(text, "ytInitialData") {
				return text, nil
			}
		}
	}
}

// extractVideoRefs pulls (videoId, title) pairs out of ytInitialData in page order.
func extractVideoRefs(data string, max int) []VideoRef {
	matches := pageVideoPattern.FindAllStringSubmatch(data, -1)
	seen := make(map[string]struct{}, len(matches))
	refs := make([]VideoRef, 0, min(len(matches), max))
	for _, m := range matches {
		if len(refs) >= max {
			break
		}
		id := m[1]
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		refs = append(refs, NewVideoRef(id, unescapeJSON(m[2])))
	}
	return refs
}

func unescapeJSON(s string) string {
	if out, err := strconv.Unquote(`"` + s + `"`); err == nil {
		return out
	}
	return s
}
