package llm

import (
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"
)

func TestResponseText(t *testing.T) {
	tests := []struct {
		name    string
		resp    *genai.GenerateContentResponse
		want    string
		wantErr error
	}{
		{
			name:    "nil response",
			resp:    nil,
			wantErr: ErrEmptyResponse,
		},
		{
			name:    "no candidates",
			resp:    &genai.GenerateContentResponse{},
			wantErr: ErrEmptyResponse,
		},
		{
			name: "candidate without content",
			resp: &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{{}},
			},
			wantErr: ErrEmptyResponse,
		},
		{
			name: "joins text parts",
			resp: &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{{
					Content: &genai.Content{Parts: []genai.Part{genai.Text("The video "), genai.Text("covers Go.")}},
				}},
			},
			want: "The video covers Go.",
		},
		{
			name: "only first candidate is used",
			resp: &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{
					{Content: &genai.Content{Parts: []genai.Part{genai.Text("first")}}},
					{Content: &genai.Content{Parts: []genai.Part{genai.Text("second")}}},
				},
			},
			want: "first",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := responseText(tt.resp)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("responseText() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("responseText() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("responseText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResponseText_Blocked(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		PromptFeedback: &genai.PromptFeedback{BlockReason: genai.BlockReasonSafety},
	}
	_, err := responseText(resp)
	if err == nil || errors.Is(err, ErrEmptyResponse) {
		t.Errorf("responseText() error = %v, want a block error", err)
	}
}

func TestEmbeddingValues(t *testing.T) {
	resp := &genai.BatchEmbedContentsResponse{
		Embeddings: []*genai.ContentEmbedding{
			{Values: []float32{1, 2}},
			{Values: []float32{3, 4}},
		},
	}

	got, err := embeddingValues(resp, 2)
	if err != nil {
		t.Fatalf("embeddingValues() error = %v", err)
	}
	if len(got) != 2 || got[1][0] != 3 {
		t.Errorf("embeddingValues() = %v", got)
	}

	if _, err := embeddingValues(resp, 3); err == nil {
		t.Error("embeddingValues() expected count mismatch error")
	}
	if _, err := embeddingValues(nil, 1); err == nil {
		t.Error("embeddingValues() expected error for nil response")
	}

	empty := &genai.BatchEmbedContentsResponse{Embeddings: []*genai.ContentEmbedding{{}}}
	if _, err := embeddingValues(empty, 1); err == nil {
		t.Error("embeddingValues() expected error for empty vector")
	}
}
