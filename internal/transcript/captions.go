package transcript

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	ytdl "github.com/kkdai/youtube/v2"

	"ytrag/internal/youtube"
)

// VideoClient is the part of the kkdai/youtube client used for captions and audio.
type VideoClient interface {
	GetVideoContext(ctx context.Context, id string) (*ytdl.Video, error)
	GetTranscriptCtx(ctx context.Context, video *ytdl.Video, lang string) (ytdl.VideoTranscript, error)
	GetStreamContext(ctx context.Context, video *ytdl.Video, format *ytdl.Format) (io.ReadCloser, int64, error)
}

// DefaultCaptionLanguages is the caption language preference order.
var DefaultCaptionLanguages = []string{"en", "en-US", "en-GB"}

// CaptionProvider reads the caption track YouTube serves for a video.
type CaptionProvider struct {
	client    VideoClient
	languages []string
}

// NewCaptionProvider creates a CaptionProvider trying languages in order.
func NewCaptionProvider(client VideoClient, languages ...string) *CaptionProvider {
	if len(languages) == 0 {
		languages = DefaultCaptionLanguages
	}
	return &CaptionProvider{client: client, languages: languages}
}

// Name implements Provider.
func (p *CaptionProvider) Name() string {
	return "captions"
}

// Fetch implements Provider.
func (p *CaptionProvider) Fetch(ctx context.Context, video youtube.VideoRef) (string, error) {
	v, err := p.client.GetVideoContext(ctx, video.ID)
	if err != nil {
		return "", describeVideoError(err)
	}

	var lastErr error
	for _, lang := range p.languages {
		segments, err := p.client.GetTranscriptCtx(ctx, v, lang)
		if err != nil {
			lastErr = err
			continue
		}
		text := joinSegments(segments)
		if text != "" {
			return text, nil
		}
		lastErr = ErrNoTranscript
	}

	if errors.Is(lastErr, ytdl.ErrTranscriptDisabled) {
		return "", fmt.Errorf("captions are disabled: %w", lastErr)
	}
	return "", fmt.Errorf("no captions in %s: %w", strings.Join(p.languages, ", "), lastErr)
}

func joinSegments(segments ytdl.VideoTranscript) string {
	var b strings.Builder
	for _, s := range segments {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(text)
	}
	return b.String()
}

// describeVideoError adds a readable reason to the errors kkdai/youtube
// returns for videos that cannot be played.
func describeVideoError(err error) error {
	switch {
	case errors.Is(err, ytdl.ErrVideoPrivate):
		return fmt.Errorf("video is private: %w", err)
	case errors.Is(err, ytdl.ErrLoginRequired):
		return fmt.Errorf("video requires sign-in: %w", err)
	case errors.Is(err, ytdl.ErrNotPlayableInEmbed):
		return fmt.Errorf("video cannot be played outside youtube: %w", err)
	}
	var status *ytdl.ErrPlayabiltyStatus
	if errors.As(err, &status) {
		return fmt.Errorf("video is unplayable (%s): %w", status.Reason, err)
	}
	return fmt.Errorf("failed to load video: %w", err)
}
