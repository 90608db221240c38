package transcript

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	ytdl "github.com/kkdai/youtube/v2"

	"ytrag/internal/contextutil"
	"ytrag/internal/youtube"
)

// MaxAudioBytes is the largest upload the transcription API accepts.
const MaxAudioBytes = 25 << 20

// ErrAudioTooLarge is returned when no audio stream fits under MaxAudioBytes.
var ErrAudioTooLarge = errors.New("audio stream exceeds transcription size limit")

// Transcriber turns an audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// AudioProvider downloads a video's audio-only stream and transcribes it.
// The downloaded file lives in a temporary directory removed on every path.
type AudioProvider struct {
	client      VideoClient
	transcriber Transcriber
	tempDir     string
}

// NewAudioProvider creates an AudioProvider.
func NewAudioProvider(client VideoClient, transcriber Transcriber, tempDir string) *AudioProvider {
	return &AudioProvider{client: client, transcriber: transcriber, tempDir: tempDir}
}

// Name implements Provider.
func (p *AudioProvider) Name() string {
	return "audio-transcription"
}

// Fetch implements Provider.
func (p *AudioProvider) Fetch(ctx context.Context, video youtube.VideoRef) (string, error) {
	logger := contextutil.LoggerFromContext(ctx)

	v, err := p.client.GetVideoContext(ctx, video.ID)
	if err != nil {
		return "", describeVideoError(err)
	}

	format, err := pickAudioFormat(v.Formats)
	if err != nil {
		return "", err
	}

	dir, err := os.MkdirTemp(p.tempDir, "ytrag-audio-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer func() {
		_ = os.RemoveAll(dir)
	}()

	path := filepath.Join(dir, video.ID+audioExtension(format.MimeType))
	if err := p.download(ctx, v, format, path); err != nil {
		return "", err
	}

	logger.DebugContext(ctx, "transcribing audio", "video_id", video.ID, "itag", format.ItagNo, "mime_type", format.MimeType)
	text, err := p.transcriber.Transcribe(ctx, path)
	if err != nil {
		return "", fmt.Errorf("transcription failed: %w", err)
	}
	return text, nil
}

func (p *AudioProvider) download(ctx context.Context, v *ytdl.Video, format *ytdl.Format, path string) error {
	stream, size, err := p.client.GetStreamContext(ctx, v, format)
	if err != nil {
		return fmt.Errorf("failed to open audio stream: %w", err)
	}
	defer func() {
		_ = stream.Close()
	}()
	if size > MaxAudioBytes {
		return fmt.Errorf("%w: %d bytes", ErrAudioTooLarge, size)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create audio file: %w", err)
	}
	n, copyErr := io.Copy(f, io.LimitReader(stream, MaxAudioBytes+1))
	closeErr := f.Close()
	if copyErr != nil {
		return fmt.Errorf("failed to download audio: %w", copyErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to write audio file: %w", closeErr)
	}
	if n > MaxAudioBytes {
		return ErrAudioTooLarge
	}
	if n == 0 {
		return fmt.Errorf("audio stream was empty")
	}
	return nil
}

// pickAudioFormat returns the smallest audio-only format that fits the upload limit.
func pickAudioFormat(formats ytdl.FormatList) (*ytdl.Format, error) {
	var best *ytdl.Format
	found := false
	for i := range formats {
		f := &formats[i]
		if f.AudioChannels == 0 || f.Width != 0 || f.Height != 0 || !strings.HasPrefix(f.MimeType, "audio/") {
			continue
		}
		found = true
		if f.ContentLength > MaxAudioBytes {
			continue
		}
		if best == nil || f.Bitrate < best.Bitrate {
			best = f
		}
	}
	if !found {
		return nil, fmt.Errorf("no audio-only stream available")
	}
	if best == nil {
		return nil, ErrAudioTooLarge
	}
	return best, nil
}

func audioExtension(mimeType string) string {
	switch {
	case strings.HasPrefix(mimeType, "audio/webm"):
		return ".webm"
	case strings.HasPrefix(mimeType, "audio/mp4"):
		return ".m4a"
	default:
		return ".mp3"
	}
}
