// Package transcript obtains plain-text transcripts for single videos.
//
// A Fetcher walks an ordered list of Providers and returns the first
// non-empty transcript. Each provider is tried once per video.
package transcript

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_provider.go -package=mocks ytrag/internal/transcript Provider,Transcriber

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"ytrag/internal/contextutil"
	"ytrag/internal/youtube"
)

var (
	// ErrTranscriptUnavailable is the sentinel wrapped by every UnavailableError.
	ErrTranscriptUnavailable = errors.New("transcript unavailable")
	// ErrNoTranscript is returned by a provider that reached the source but got no text.
	ErrNoTranscript = errors.New("no transcript text")
)

// Provider is one source of transcripts.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, video youtube.VideoRef) (string, error)
}

// Attempt is the outcome of one failed provider call.
type Attempt struct {
	Provider string
	Err      error
}

// UnavailableError reports that no provider produced a transcript for Video.
type UnavailableError struct {
	Video    youtube.VideoRef
	Attempts []Attempt
}

// Reason is the last provider's failure message.
func (e *UnavailableError) Reason() string {
	if len(e.Attempts) == 0 {
		return "no transcript providers configured"
	}
	last := e.Attempts[len(e.Attempts)-1]
	return fmt.Sprintf("%s: %v", last.Provider, last.Err)
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("transcript unavailable for %s: %s", e.Video.ID, e.Reason())
}

func (e *UnavailableError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts)+1)
	errs = append(errs, ErrTranscriptUnavailable)
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}
	return errs
}

// Fetcher tries providers in order.
type Fetcher struct {
	providers []Provider
}

// NewFetcher creates a Fetcher. Nil providers are skipped.
func NewFetcher(providers ...Provider) *Fetcher {
	f := &Fetcher{}
	for _, p := range providers {
		if p != nil {
			f.providers = append(f.providers, p)
		}
	}
	return f
}

// Providers returns the names of the configured providers in order.
func (f *Fetcher) Providers() []string {
	names := make([]string, 0, len(f.providers))
	for _, p := range f.providers {
		names = append(names, p.Name())
	}
	return names
}

// Fetch returns the normalized transcript of video from the first provider that
// yields non-empty text. If every provider fails the error is an *UnavailableError.
// A cancelled context stops the chain and is returned as is.
func (f *Fetcher) Fetch(ctx context.Context, video youtube.VideoRef) (string, error) {
	logger := contextutil.LoggerFromContext(ctx)

	var attempts []Attempt
	for _, p := range f.providers {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		text, err := p.Fetch(ctx, video)
		if err == nil {
			text = Normalize(text)
			if text == "" {
				err = ErrNoTranscript
			}
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", ctxErr
			}
			logger.WarnContext(ctx, "transcript provider failed", "provider", p.Name(), "video_id", video.ID, "error", err)
			attempts = append(attempts, Attempt{Provider: p.Name(), Err: err})
			continue
		}

		logger.InfoContext(ctx, "transcript fetched", "provider", p.Name(), "video_id", video.ID, "chars", len(text))
		return text, nil
	}

	return "", &UnavailableError{Video: video, Attempts: attempts}
}

var (
	soundTagPattern = regexp.MustCompile(`(?i)\[(?:music|applause|laughter|laughs|silence|inaudible|__)\]`)
	spacePattern    = regexp.MustCompile(`[^\S\n]+`)
	newlinePattern  = regexp.MustCompile(` ?\n ?`)
	blankPattern    = regexp.MustCompile(`\n{3,}`)
)

// Normalize strips caption sound tags and collapses whitespace. Line breaks
// survive, and runs of blank lines become a single paragraph break.
func Normalize(text string) string {
	text = soundTagPattern.ReplaceAllString(text, " ")
	text = strings.ReplaceAll(text, "\u00a0", " ")
	text = spacePattern.ReplaceAllString(text, " ")
	text = newlinePattern.ReplaceAllString(text, "\n")
	text = blankPattern.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
