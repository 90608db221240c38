package transcript

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/meguminnnnnnnnn/go-openai"
)

// WhisperTranscriber sends audio files to an OpenAI-compatible transcription endpoint.
type WhisperTranscriber struct {
	client *openai.Client
	model  string
}

// NewWhisperTranscriber creates a transcriber. An empty baseURL uses the OpenAI API.
func NewWhisperTranscriber(apiKey, baseURL string) *WhisperTranscriber {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &WhisperTranscriber{
		client: openai.NewClientWithConfig(config),
		model:  openai.Whisper1,
	}
}

// Transcribe implements Transcriber.
func (t *WhisperTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		FilePath: audioPath,
		Language: "en",
		Format:   openai.AudioResponseFormatText,
	})
	if err != nil {
		return "", fmt.Errorf("whisper request failed: %w", err)
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", ErrNoTranscript
	}
	return text, nil
}
