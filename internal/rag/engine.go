// Package rag answers questions from the chunks of a built index.
package rag

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_rag.go -package=mocks ytrag/internal/rag Generator,Retriever

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ytrag/internal/contextutil"
	"ytrag/internal/indexer"
	"ytrag/internal/youtube"
)

const (
	// DefaultK is the number of chunks retrieved when the request does not say.
	DefaultK = 5
	// MaxK caps the number of chunks per question.
	MaxK = 20
)

// ErrEmptyQuestion is returned for blank questions.
var ErrEmptyQuestion = errors.New("question is empty")

// NoContextAnswer is returned without calling the model when retrieval finds nothing.
const NoContextAnswer = "I couldn't find any relevant information in the processed transcripts to answer this question."

const systemPrompt = `You are an expert AI assistant analyzing YouTube video transcripts. Your task is to provide comprehensive, accurate answers based solely on the provided transcript content.

INSTRUCTIONS:
- Answer ONLY using the provided transcript context
- Be specific and detailed in your responses
- If the context doesn't contain enough information, clearly state what information is missing
- When referencing information, be specific about which video it comes from
- If multiple videos are relevant, synthesize information from all sources
- Use bullet points or numbered lists when appropriate for clarity
- Maintain a helpful and engaging tone`

var suggestedQuestions = []string{
	"What are the main topics covered in these videos?",
	"Can you summarize the key points from all videos?",
	"What specific techniques or methods are mentioned?",
	"Are there any common themes across the videos?",
}

// SuggestedQuestions returns starter questions for an empty chat.
func SuggestedQuestions() []string {
	out := make([]string, len(suggestedQuestions))
	copy(out, suggestedQuestions)
	return out
}

// Generator produces an answer from a system instruction and a user prompt.
type Generator interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

// Retriever finds the chunks most relevant to a query. *indexer.Index implements it.
type Retriever interface {
	Search(ctx context.Context, query string, opts indexer.SearchOptions) ([]indexer.ScoredChunk, error)
}

// Engine answers questions with retrieval-augmented generation.
type Engine struct {
	generator Generator
	defaultK  int
}

// NewEngine creates a new RAG engine. defaultK <= 0 uses DefaultK.
func NewEngine(generator Generator, defaultK int) *Engine {
	if defaultK <= 0 {
		defaultK = DefaultK
	}
	return &Engine{
		generator: generator,
		defaultK:  min(defaultK, MaxK),
	}
}

// Ask retrieves the top chunks for the question from retriever and asks the
// generator to answer from them. The answer is returned verbatim; a failed or
// blank generation is an *AnswerGenerationError.
func (e *Engine) Ask(ctx context.Context, retriever Retriever, req AskRequest) (*AskResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	k := e.clampK(req.K)
	logger.InfoContext(ctx, "RAG query started", "question_length", len(question), "k", k, "video_id", req.VideoID)

	hits, err := retriever.Search(ctx, question, indexer.SearchOptions{K: k, VideoID: req.VideoID})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve chunks: %w", err)
	}
	if len(hits) == 0 {
		logger.InfoContext(ctx, "no chunks retrieved")
		return &AskResponse{Answer: NoContextAnswer, Sources: []youtube.VideoRef{}}, nil
	}

	ranked := rerank(question, hits)
	contextBlock := buildContext(ranked)
	userPrompt := buildUserPrompt(question, contextBlock)

	logger.DebugContext(ctx, "sending request to LLM",
		"chunks", len(ranked),
		"context_length", len(contextBlock),
		"user_prompt_length", len(userPrompt))

	answer, err := e.generator.Generate(ctx, systemPrompt, userPrompt)
	if err != nil {
		logger.ErrorContext(ctx, "failed to get LLM response", "error", err)
		return nil, &AnswerGenerationError{Question: question, Err: err}
	}
	if strings.TrimSpace(answer) == "" {
		logger.ErrorContext(ctx, "LLM returned an empty answer")
		return nil, &AnswerGenerationError{Question: question}
	}

	resp := &AskResponse{
		Answer:  answer,
		Sources: sources(ranked),
		Chunks:  retrievedChunks(ranked),
	}
	logger.InfoContext(ctx, "RAG query completed", "chunks_used", len(ranked), "sources", len(resp.Sources), "answer_length", len(answer))
	return resp, nil
}

func (e *Engine) clampK(k int) int {
	if k <= 0 {
		k = e.defaultK
	}
	if k > MaxK {
		k = MaxK
	}
	return k
}

func buildContext(ranked []rankedChunk) string {
	var sb strings.Builder
	for i, c := range ranked {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "[Video: %s] %s\n%s", c.Video.DisplayTitle(), c.Video.URL, c.Text)
	}
	return sb.String()
}

func buildUserPrompt(question, contextBlock string) string {
	return fmt.Sprintf("CONTEXT FROM VIDEO TRANSCRIPTS:\n%s\n\nUSER QUESTION: %s\n\nCOMPREHENSIVE ANSWER:", contextBlock, question)
}

// sources deduplicates the chunk videos by ID, keeping first-seen order.
func sources(ranked []rankedChunk) []youtube.VideoRef {
	seen := make(map[string]struct{}, len(ranked))
	out := make([]youtube.VideoRef, 0, len(ranked))
	for _, c := range ranked {
		if _, ok := seen[c.Video.ID]; ok {
			continue
		}
		seen[c.Video.ID] = struct{}{}
		out = append(out, c.Video)
	}
	return out
}

func retrievedChunks(ranked []rankedChunk) []RetrievedChunk {
	out := make([]RetrievedChunk, len(ranked))
	for i, c := range ranked {
		out[i] = RetrievedChunk{
			ChunkID:      c.ID,
			VideoID:      c.Video.ID,
			ChunkIndex:   c.Index,
			ScoreVector:  float64(c.VectorScore),
			ScoreLexical: float64(c.lexical),
			ScoreFinal:   c.final,
			Rank:         i + 1,
		}
	}
	return out
}
