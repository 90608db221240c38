package rag

import (
	"fmt"

	"ytrag/internal/youtube"
)

// AskRequest represents a question against the current index.
type AskRequest struct {
	// Question is the user's question to answer.
	Question string `json:"question"`
	// K optionally specifies the number of chunks to retrieve. 0 uses the engine default.
	K int `json:"k,omitempty"`
	// VideoID restricts retrieval to one video when set.
	VideoID string `json:"video_id,omitempty"`
}

// AskResponse represents the response from a RAG query.
type AskResponse struct {
	// Answer is the generated answer, verbatim from the model.
	Answer string `json:"answer"`
	// Sources are the videos the retrieved chunks came from, deduplicated in retrieval order.
	Sources []youtube.VideoRef `json:"sources"`
	// Chunks are the retrieved chunks in the order they were given to the model.
	Chunks []RetrievedChunk `json:"chunks,omitempty"`
}

// RetrievedChunk represents a retrieved chunk with scoring information.
type RetrievedChunk struct {
	// ChunkID is the chunk identifier within the index.
	ChunkID string `json:"chunk_id"`
	// VideoID is the source video.
	VideoID string `json:"video_id"`
	// ChunkIndex is the position of the chunk within its video.
	ChunkIndex int `json:"chunk_index"`
	// ScoreVector is the vector similarity score.
	ScoreVector float64 `json:"score_vector"`
	// ScoreLexical is the lexical rerank bonus.
	ScoreLexical float64 `json:"score_lexical"`
	// ScoreFinal is the combined final score.
	ScoreFinal float64 `json:"score_final"`
	// Rank is the 1-based rank after reranking.
	Rank int `json:"rank"`
}

// AnswerGenerationError is returned when the model call fails or returns no text.
// The index and chat history are left untouched.
type AnswerGenerationError struct {
	Question string
	Err      error
}

func (e *AnswerGenerationError) Error() string {
	if e.Err == nil {
		return "answer generation failed: model returned an empty answer"
	}
	return fmt.Sprintf("answer generation failed: %v", e.Err)
}

func (e *AnswerGenerationError) Unwrap() error {
	return e.Err
}
