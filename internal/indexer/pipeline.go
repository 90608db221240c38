// Package indexer turns the transcripts of a run into a searchable index.
package indexer

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_embedder.go -package=mocks ytrag/internal/indexer Embedder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ytrag/internal/contextutil"
	"ytrag/internal/ingest"
	"ytrag/internal/vectorstore"
)

// DefaultEmbedBatchSize is the number of chunks embedded per request.
const DefaultEmbedBatchSize = 100

// ErrEmptyCorpus is returned when a run has no successful transcript to index.
var ErrEmptyCorpus = errors.New("empty corpus")

// Embedder produces one vector per input text.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Pipeline builds one Index per processing run.
type Pipeline struct {
	splitter  *Splitter
	embedder  Embedder
	store     vectorstore.VectorStore
	prefix    string
	batchSize int
}

// NewPipeline creates a new indexing pipeline.
// Collections are named "<prefix>-<run id>".
func NewPipeline(splitter *Splitter, embedder Embedder, store vectorstore.VectorStore, prefix string) *Pipeline {
	return &Pipeline{
		splitter:  splitter,
		embedder:  embedder,
		store:     store,
		prefix:    prefix,
		batchSize: DefaultEmbedBatchSize,
	}
}

// WithBatchSize overrides the embedding batch size.
func (p *Pipeline) WithBatchSize(n int) *Pipeline {
	if n > 0 {
		p.batchSize = n
	}
	return p
}

// Chunks splits the successful results of summary in order. Failed results
// are never read.
func (p *Pipeline) Chunks(summary *ingest.Summary) []Chunk {
	var chunks []Chunk
	for _, result := range summary.Successes() {
		for i, seg := range p.splitter.Split(result.Text) {
			chunks = append(chunks, Chunk{
				ID:     uuid.New().String(),
				Text:   seg.Text,
				Video:  result.Video,
				Index:  i,
				Offset: seg.Offset,
			})
		}
	}
	return chunks
}

// Build chunks, embeds and stores every successful transcript of summary in
// a fresh collection. The returned Index is immutable. When Build fails after
// the collection was created, the collection is dropped.
func (p *Pipeline) Build(ctx context.Context, summary *ingest.Summary) (*Index, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if summary == nil || summary.Succeeded == 0 {
		return nil, fmt.Errorf("%w: no successful transcripts", ErrEmptyCorpus)
	}
	chunks := p.Chunks(summary)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: transcripts produced no chunks", ErrEmptyCorpus)
	}

	start := time.Now()
	runID := uuid.New().String()
	collection := p.prefix + "-" + runID
	logger.InfoContext(ctx, "building index", "run_id", runID, "chunks", len(chunks), "videos", summary.Succeeded)

	vectors, err := p.embed(ctx, chunks)
	if err != nil {
		return nil, err
	}

	if err := p.store.EnsureCollection(ctx, collection, len(vectors[0])); err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	ix, err := p.populate(ctx, runID, collection, chunks, vectors)
	if err != nil {
		if dropErr := p.store.DropCollection(context.WithoutCancel(ctx), collection); dropErr != nil {
			logger.WarnContext(ctx, "failed to drop collection after build error", "collection", collection, "error", dropErr)
		}
		return nil, err
	}

	ix.stats = computeStats(chunks, summary, p.splitter)
	logger.InfoContext(ctx, "index built",
		"run_id", runID,
		"collection", collection,
		"chunks", len(chunks),
		"duration", time.Since(start))
	return ix, nil
}

func (p *Pipeline) embed(ctx context.Context, chunks []Chunk) ([][]float32, error) {
	vectors := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += p.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+p.batchSize, len(chunks))

		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Text)
		}

		batch, err := p.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("failed to generate embeddings: %w", err)
		}
		if len(batch) != len(texts) {
			return nil, fmt.Errorf("embedding count mismatch: expected %d, got %d", len(texts), len(batch))
		}
		vectors = append(vectors, batch...)
	}

	dims := len(vectors[0])
	if dims == 0 {
		return nil, fmt.Errorf("embedder returned empty vectors")
	}
	for i, v := range vectors {
		if len(v) != dims {
			return nil, fmt.Errorf("embedding %d has %d dimensions, expected %d", i, len(v), dims)
		}
	}
	return vectors, nil
}

func (p *Pipeline) populate(ctx context.Context, runID, collection string, chunks []Chunk, vectors [][]float32) (*Index, error) {
	for start := 0; start < len(chunks); start += p.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+p.batchSize, len(chunks))

		points := make([]vectorstore.Point, 0, end-start)
		for i := start; i < end; i++ {
			points = append(points, vectorstore.Point{
				ID:   chunks[i].ID,
				Vec:  vectors[i],
				Meta: chunks[i].payload(),
			})
		}
		if err := p.store.Upsert(ctx, collection, points); err != nil {
			return nil, fmt.Errorf("failed to upsert vectors: %w", err)
		}
	}

	kw, err := newKeywordIndex()
	if err != nil {
		return nil, err
	}
	if err := kw.add(chunks); err != nil {
		_ = kw.close()
		return nil, err
	}

	return newIndex(runID, collection, chunks, p.embedder, p.store, kw), nil
}
