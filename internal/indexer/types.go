package indexer

import "ytrag/internal/youtube"

// Chunk is the unit of embedding and retrieval.
type Chunk struct {
	ID     string           `json:"id"`
	Text   string           `json:"text"`
	Video  youtube.VideoRef `json:"video"`
	Index  int              `json:"index"`  // position within the video's chunks
	Offset int              `json:"offset"` // rune offset into the transcript
}

// ScoredChunk is a retrieval hit.
type ScoredChunk struct {
	Chunk
	Score        float64 `json:"score"`
	VectorScore  float32 `json:"vector_score"`
	KeywordScore float64 `json:"keyword_score"`
}

// payload keys stored with every vector point
const (
	metaText       = "text"
	metaVideoID    = "video_id"
	metaVideoURL   = "video_url"
	metaVideoTitle = "video_title"
	metaChunkIndex = "chunk_index"
	metaOffset     = "offset"
)

func (c Chunk) payload() map[string]any {
	return map[string]any{
		metaText:       c.Text,
		metaVideoID:    c.Video.ID,
		metaVideoURL:   c.Video.URL,
		metaVideoTitle: c.Video.Title,
		metaChunkIndex: c.Index,
		metaOffset:     c.Offset,
	}
}

// chunkFromPayload rebuilds a chunk from vector store metadata.
func chunkFromPayload(id string, meta map[string]any) Chunk {
	return Chunk{
		ID:   id,
		Text: metaString(meta, metaText),
		Video: youtube.VideoRef{
			ID:    metaString(meta, metaVideoID),
			URL:   metaString(meta, metaVideoURL),
			Title: metaString(meta, metaVideoTitle),
		},
		Index:  metaInt(meta, metaChunkIndex),
		Offset: metaInt(meta, metaOffset),
	}
}

func metaString(meta map[string]any, key string) string {
	if s, ok := meta[key].(string); ok {
		return s
	}
	return ""
}

// Qdrant returns integers as int64, the memory store keeps the stored type.
func metaInt(meta map[string]any, key string) int {
	switch v := meta[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
