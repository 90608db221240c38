package youtube

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_discoverer.go -package=mocks ytrag/internal/youtube Discoverer

import (
	"context"
	"errors"

	"ytrag/internal/contextutil"
)

const (
	// MinVideos and MaxVideos bound the number of videos one run may discover.
	MinVideos = 1
	MaxVideos = 50
)

// Discoverer lists the videos behind a playlist or channel-search locator.
type Discoverer interface {
	// Name identifies the strategy in logs and error reports.
	Name() string
	// Discover returns at most max videos in source order.
	// It returns ErrLocatorNotSupported for locator kinds it cannot handle.
	Discover(ctx context.Context, loc Locator, max int) ([]VideoRef, error)
}

// ClampMax bounds a requested video count to [MinVideos, MaxVideos].
func ClampMax(n int) int {
	if n < MinVideos {
		return MinVideos
	}
	if n > MaxVideos {
		return MaxVideos
	}
	return n
}

// Chain tries its strategies in order and returns the first non-empty listing.
type Chain struct {
	strategies []Discoverer
}

// NewChain creates a Chain over the given strategies. Nil entries are skipped.
func NewChain(strategies ...Discoverer) *Chain {
	c := &Chain{}
	for _, s := range strategies {
		if s != nil {
			c.strategies = append(c.strategies, s)
		}
	}
	return c
}

// Name implements Discoverer.
func (c *Chain) Name() string {
	return "chain"
}

// Strategies returns the names of the configured strategies in order.
func (c *Chain) Strategies() []string {
	names := make([]string, 0, len(c.strategies))
	for _, s := range c.strategies {
		names = append(names, s.Name())
	}
	return names
}

// Discover returns a deduplicated listing of at most max videos, preserving
// the order of the first strategy that produced a result.
// A single-video locator resolves to that video without any network call.
// When no strategy yields a video the result is a *DiscoveryError.
func (c *Chain) Discover(ctx context.Context, loc Locator, max int) ([]VideoRef, error) {
	logger := contextutil.LoggerFromContext(ctx)
	max = ClampMax(max)

	if loc.Kind == KindSingleVideo {
		return []VideoRef{loc.Video()}, nil
	}

	var attempts []StrategyError
	for _, s := range c.strategies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		refs, err := s.Discover(ctx, loc, max)
		if errors.Is(err, ErrLocatorNotSupported) {
			continue
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			logger.WarnContext(ctx, "discovery strategy failed", "strategy", s.Name(), "url", loc.URL, "error", err)
			attempts = append(attempts, StrategyError{Strategy: s.Name(), Err: err})
			continue
		}

		refs = Finalize(refs, max)
		if len(refs) == 0 {
			logger.WarnContext(ctx, "discovery strategy returned no videos", "strategy", s.Name(), "url", loc.URL)
			attempts = append(attempts, StrategyError{Strategy: s.Name(), Err: errors.New("no videos found")})
			continue
		}

		logger.InfoContext(ctx, "discovered videos", "strategy", s.Name(), "url", loc.URL, "count", len(refs), "max", max)
		return refs, nil
	}

	reason := "no videos found"
	if len(attempts) == 0 {
		reason = "no discovery strategy supports " + loc.Kind.String()
	}
	return nil, &DiscoveryError{URL: loc.URL, Reason: reason, Attempts: attempts}
}

// Finalize drops refs without an ID, removes duplicate IDs keeping the first
// occurrence, fills in missing URLs and truncates to max.
func Finalize(refs []VideoRef, max int) []VideoRef {
	seen := make(map[string]struct{}, len(refs))
	out := make([]VideoRef, 0, min(len(refs), max))
	for _, ref := range refs {
		if len(out) >= max {
			break
		}
		if ref.ID == "" {
			continue
		}
		if _, dup := seen[ref.ID]; dup {
			continue
		}
		seen[ref.ID] = struct{}{}
		if ref.URL == "" {
			ref.URL = WatchURL(ref.ID)
		}
		out = append(out, ref)
	}
	return out
}
