package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// maxGeminiBatch is the per-request limit of batchEmbedContents.
const maxGeminiBatch = 100

// ErrEmptyResponse is returned when a model produced no text.
var ErrEmptyResponse = errors.New("model returned no text")

// GeminiClient embeds and generates with the Gemini API.
type GeminiClient struct {
	client      *genai.Client
	chatModel   string
	embedModel  string
	temperature float32
}

// NewGeminiClient opens a Gemini client with apiKey. Close releases it.
func NewGeminiClient(ctx context.Context, apiKey, chatModel, embedModel string, temperature float32) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiClient{
		client:      client,
		chatModel:   chatModel,
		embedModel:  embedModel,
		temperature: temperature,
	}, nil
}

// Close closes the underlying connection.
func (g *GeminiClient) Close() error {
	return g.client.Close()
}

// EmbedTexts embeds texts in batches of at most 100 and returns the vectors in input order.
func (g *GeminiClient) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("empty input array")
	}

	em := g.client.EmbeddingModel(g.embedModel)
	result := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxGeminiBatch {
		end := min(start+maxGeminiBatch, len(texts))

		batch := em.NewBatch()
		for _, t := range texts[start:end] {
			batch.AddContent(genai.Text(t))
		}

		resp, err := em.BatchEmbedContents(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("failed to embed batch: %w", err)
		}
		vectors, err := embeddingValues(resp, end-start)
		if err != nil {
			return nil, err
		}
		result = append(result, vectors...)
	}
	return result, nil
}

func embeddingValues(resp *genai.BatchEmbedContentsResponse, want int) ([][]float32, error) {
	if resp == nil || len(resp.Embeddings) != want {
		got := 0
		if resp != nil {
			got = len(resp.Embeddings)
		}
		return nil, fmt.Errorf("expected %d embeddings, got %d", want, got)
	}
	vectors := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		if e == nil || len(e.Values) == 0 {
			return nil, fmt.Errorf("embedding %d is empty", i)
		}
		vectors[i] = e.Values
	}
	return vectors, nil
}

// Generate answers user under the system instruction.
func (g *GeminiClient) Generate(ctx context.Context, system, user string) (string, error) {
	model := g.client.GenerativeModel(g.chatModel)
	model.SetTemperature(g.temperature)
	if system != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(system))
	}

	resp, err := model.GenerateContent(ctx, genai.Text(user))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	return responseText(resp)
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
			return "", fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason)
		}
		return "", ErrEmptyResponse
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return "", ErrEmptyResponse
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}
