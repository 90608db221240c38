package vectorstore

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sync"
)

// MemoryStore is an in-process VectorStore used when no Qdrant URL is configured.
// Search is a brute-force cosine scan, which is fine for the few thousand
// chunks one run produces.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memCollection
}

type memCollection struct {
	size   int
	order  []string
	points map[string]Point
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memCollection)}
}

// Health implements VectorStore.
func (s *MemoryStore) Health(context.Context) error {
	return nil
}

// EnsureCollection implements VectorStore.
func (s *MemoryStore) EnsureCollection(_ context.Context, collection string, vectorSize int) error {
	if vectorSize <= 0 {
		return fmt.Errorf("vector size must be greater than 0")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.collections[collection]; ok {
		if c.size != vectorSize {
			return fmt.Errorf("collection vector size mismatch: expected %d, got %d", vectorSize, c.size)
		}
		return nil
	}
	s.collections[collection] = &memCollection{size: vectorSize, points: make(map[string]Point)}
	return nil
}

// Upsert implements VectorStore.
func (s *MemoryStore) Upsert(_ context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[collection]
	if !ok {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}
	for _, p := range points {
		if len(p.Vec) != c.size {
			return fmt.Errorf("point %s has %d dimensions, collection expects %d", p.ID, len(p.Vec), c.size)
		}
	}
	for _, p := range points {
		if _, exists := c.points[p.ID]; !exists {
			c.order = append(c.order, p.ID)
		}
		c.points[p.ID] = Point{ID: p.ID, Vec: slices.Clone(p.Vec), Meta: p.Meta}
	}
	return nil
}

// Search implements VectorStore.
func (s *MemoryStore) Search(_ context.Context, collection string, query []float32, k int, filters map[string]any) ([]SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be greater than 0")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[collection]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}
	if len(query) != c.size {
		return nil, fmt.Errorf("query has %d dimensions, collection expects %d", len(query), c.size)
	}

	results := make([]SearchResult, 0, len(c.points))
	for _, id := range c.order {
		p := c.points[id]
		if !matches(p.Meta, filters) {
			continue
		}
		results = append(results, SearchResult{PointID: p.ID, Score: cosine(query, p.Vec), Meta: p.Meta})
	}

	// Stable so equal scores keep insertion order.
	slices.SortStableFunc(results, func(a, b SearchResult) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// DropCollection implements VectorStore.
func (s *MemoryStore) DropCollection(_ context.Context, collection string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections, collection)
	return nil
}

// CollectionInfo implements VectorStore.
func (s *MemoryStore) CollectionInfo(_ context.Context, collection string) (*CollectionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[collection]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}
	return &CollectionInfo{VectorSize: c.size, PointsCount: len(c.points), Status: "green"}, nil
}

func matches(meta, filters map[string]any) bool {
	for key, want := range filters {
		got, ok := meta[key]
		if !ok || fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
