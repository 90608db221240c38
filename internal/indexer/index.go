package indexer

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"ytrag/internal/contextutil"
	"ytrag/internal/vectorstore"
	"ytrag/internal/youtube"
)

// ErrIndexDropped is returned by Search after Drop.
var ErrIndexDropped = errors.New("index has been dropped")

// rrfK dampens the weight of top ranks in reciprocal rank fusion.
const rrfK = 60

// SearchOptions narrows a search.
type SearchOptions struct {
	K       int
	VideoID string // restrict to one video when set
}

// Index is the read-only handle to one run's chunks. It is safe for
// concurrent searches.
type Index struct {
	id         string
	collection string
	createdAt  time.Time

	embedder Embedder
	store    vectorstore.VectorStore
	keyword  *keywordIndex

	chunks map[string]Chunk
	videos []youtube.VideoRef
	stats  Stats

	mu      sync.RWMutex
	dropped bool
}

func newIndex(id, collection string, chunks []Chunk, embedder Embedder, store vectorstore.VectorStore, kw *keywordIndex) *Index {
	ix := &Index{
		id:         id,
		collection: collection,
		createdAt:  time.Now().UTC(),
		embedder:   embedder,
		store:      store,
		keyword:    kw,
		chunks:     make(map[string]Chunk, len(chunks)),
	}
	seen := make(map[string]struct{})
	for _, c := range chunks {
		ix.chunks[c.ID] = c
		if _, ok := seen[c.Video.ID]; !ok {
			seen[c.Video.ID] = struct{}{}
			ix.videos = append(ix.videos, c.Video)
		}
	}
	return ix
}

// ID identifies the run that built the index.
func (ix *Index) ID() string { return ix.id }

// Collection is the vector store collection backing the index.
func (ix *Index) Collection() string { return ix.collection }

// CreatedAt is when the index was built.
func (ix *Index) CreatedAt() time.Time { return ix.createdAt }

// Len is the number of chunks.
func (ix *Index) Len() int { return len(ix.chunks) }

// Videos returns the indexed videos in run order.
func (ix *Index) Videos() []youtube.VideoRef {
	return slices.Clone(ix.videos)
}

// Stats returns build statistics.
func (ix *Index) Stats() Stats { return ix.stats }

// Contains reports whether the video has chunks in the index.
func (ix *Index) Contains(videoID string) bool {
	return slices.ContainsFunc(ix.videos, func(v youtube.VideoRef) bool { return v.ID == videoID })
}

// Search returns the k chunks most relevant to query. Vector similarity and
// keyword (BM25) rankings are merged with reciprocal rank fusion. Every hit
// is a chunk of this index.
func (ix *Index) Search(ctx context.Context, query string, opts SearchOptions) ([]ScoredChunk, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if opts.K <= 0 {
		return nil, fmt.Errorf("k must be greater than 0")
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if ix.dropped {
		return nil, ErrIndexDropped
	}

	candidates := opts.K * 3

	vecs, err := ix.embedder.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embedding count mismatch: expected 1, got %d", len(vecs))
	}

	var filters map[string]any
	if opts.VideoID != "" {
		filters = map[string]any{metaVideoID: opts.VideoID}
	}
	vectorHits, err := ix.store.Search(ctx, ix.collection, vecs[0], candidates, filters)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	keywordHits, err := ix.keyword.search(query, opts.VideoID, candidates)
	if err != nil {
		logger.WarnContext(ctx, "keyword search failed, using vector results only", "error", err)
		keywordHits = nil
	}

	fused := make(map[string]*ScoredChunk)
	lookup := func(id string, meta map[string]any) *ScoredChunk {
		if sc, ok := fused[id]; ok {
			return sc
		}
		c, ok := ix.chunks[id]
		if !ok {
			if meta == nil {
				return nil
			}
			c = chunkFromPayload(id, meta)
			if !ix.Contains(c.Video.ID) {
				return nil
			}
		}
		sc := &ScoredChunk{Chunk: c}
		fused[id] = sc
		return sc
	}

	for rank, hit := range vectorHits {
		sc := lookup(hit.PointID, hit.Meta)
		if sc == nil {
			continue
		}
		sc.VectorScore = hit.Score
		sc.Score += 1.0 / float64(rrfK+rank+1)
	}
	for rank, hit := range keywordHits {
		sc := lookup(hit.ID, nil)
		if sc == nil {
			continue
		}
		sc.KeywordScore = hit.Score
		sc.Score += 1.0 / float64(rrfK+rank+1)
	}

	results := make([]ScoredChunk, 0, len(fused))
	for _, sc := range fused {
		results = append(results, *sc)
	}
	slices.SortFunc(results, func(a, b ScoredChunk) int {
		switch {
		case a.Score != b.Score:
			if a.Score > b.Score {
				return -1
			}
			return 1
		case a.VectorScore != b.VectorScore:
			if a.VectorScore > b.VectorScore {
				return -1
			}
			return 1
		}
		return compareChunkPosition(a.Chunk, b.Chunk)
	})
	if len(results) > opts.K {
		results = results[:opts.K]
	}

	logger.DebugContext(ctx, "index search",
		"collection", ix.collection,
		"k", opts.K,
		"vector_hits", len(vectorHits),
		"keyword_hits", len(keywordHits),
		"results", len(results))
	return results, nil
}

func compareChunkPosition(a, b Chunk) int {
	if a.Video.ID != b.Video.ID {
		if a.Video.ID < b.Video.ID {
			return -1
		}
		return 1
	}
	return a.Index - b.Index
}

// Drop deletes the backing collection and the keyword index. It is safe to
// call more than once; later searches fail with ErrIndexDropped.
func (ix *Index) Drop(ctx context.Context) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.dropped {
		return nil
	}
	ix.dropped = true

	var errs []error
	if err := ix.store.DropCollection(ctx, ix.collection); err != nil {
		errs = append(errs, err)
	}
	if err := ix.keyword.close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close keyword index: %w", err))
	}
	return errors.Join(errs...)
}
