package transcript

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/asticode/go-astisub"

	"ytrag/internal/youtube"
)

// CommandRunner runs yt-dlp with the given arguments.
type CommandRunner interface {
	Run(ctx context.Context, args ...string) ([]byte, error)
}

// SubtitleProvider downloads English subtitles with yt-dlp (manual first,
// auto-generated otherwise) and reads them as WebVTT.
type SubtitleProvider struct {
	runner  CommandRunner
	tempDir string
}

// NewSubtitleProvider creates a SubtitleProvider.
// Subtitle files are written under a fresh directory inside tempDir ("" means os.TempDir).
func NewSubtitleProvider(runner CommandRunner, tempDir string) *SubtitleProvider {
	return &SubtitleProvider{runner: runner, tempDir: tempDir}
}

// Name implements Provider.
func (p *SubtitleProvider) Name() string {
	return "yt-dlp-subtitles"
}

// Fetch implements Provider.
func (p *SubtitleProvider) Fetch(ctx context.Context, video youtube.VideoRef) (string, error) {
	dir, err := os.MkdirTemp(p.tempDir, "ytrag-subs-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer func() {
		_ = os.RemoveAll(dir)
	}()

	_, err = p.runner.Run(ctx,
		"--skip-download",
		"--write-subs",
		"--write-auto-subs",
		"--sub-langs", "en.*,en",
		"--sub-format", "vtt",
		"--output", filepath.Join(dir, "%(id)s.%(ext)s"),
		video.URL,
	)
	if err != nil {
		return "", fmt.Errorf("subtitle download failed: %w", err)
	}

	path, err := pickSubtitleFile(dir)
	if err != nil {
		return "", err
	}

	subs, err := astisub.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to parse subtitles: %w", err)
	}
	return subtitleText(subs), nil
}

// pickSubtitleFile prefers plain "en" over regional variants.
func pickSubtitleFile(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.vtt"))
	if err != nil {
		return "", fmt.Errorf("failed to list subtitle files: %w", err)
	}
	if len(matches) == 0 {
		return "", ErrNoTranscript
	}
	sort.Strings(matches)
	for _, m := range matches {
		if strings.HasSuffix(m, ".en.vtt") {
			return m, nil
		}
	}
	return matches[0], nil
}

// subtitleText flattens cues into text. Auto-generated tracks repeat the
// previous line at the start of each cue, so consecutive duplicates are dropped.
func subtitleText(subs *astisub.Subtitles) string {
	var b strings.Builder
	var previous string
	for _, item := range subs.Items {
		for _, line := range item.Lines {
			var parts []string
			for _, li := range line.Items {
				if t := strings.TrimSpace(li.Text); t != "" {
					parts = append(parts, t)
				}
			}
			text := strings.Join(parts, " ")
			if text == "" || text == previous {
				continue
			}
			previous = text
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(text)
		}
	}
	return b.String()
}
