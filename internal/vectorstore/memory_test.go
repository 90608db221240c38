package vectorstore_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"ytrag/internal/vectorstore"
)

func seeded(t *testing.T) *vectorstore.MemoryStore {
	t.Helper()
	ctx := context.Background()
	s := vectorstore.NewMemoryStore()
	if err := s.EnsureCollection(ctx, "run", 2); err != nil {
		t.Fatalf("EnsureCollection() error = %v", err)
	}
	points := []vectorstore.Point{
		{ID: "east", Vec: []float32{1, 0}, Meta: map[string]any{"video_id": "a"}},
		{ID: "north", Vec: []float32{0, 1}, Meta: map[string]any{"video_id": "b"}},
		{ID: "northeast", Vec: []float32{1, 1}, Meta: map[string]any{"video_id": "a"}},
	}
	if err := s.Upsert(ctx, "run", points); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	return s
}

func TestMemoryStore_Search(t *testing.T) {
	s := seeded(t)

	tests := []struct {
		name    string
		query   []float32
		k       int
		filters map[string]any
		want    []string
	}{
		{name: "nearest first", query: []float32{1, 0.1}, k: 3, want: []string{"east", "northeast", "north"}},
		{name: "limited to k", query: []float32{0, 1}, k: 1, want: []string{"north"}},
		{name: "filtered", query: []float32{0, 1}, k: 3, filters: map[string]any{"video_id": "a"}, want: []string{"northeast", "east"}},
		{name: "filter matches nothing", query: []float32{0, 1}, k: 3, filters: map[string]any{"video_id": "zzz"}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := s.Search(context.Background(), "run", tt.query, tt.k, tt.filters)
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			if len(results) != len(tt.want) {
				t.Fatalf("Search() returned %d results, want %d", len(results), len(tt.want))
			}
			for i, r := range results {
				if r.PointID != tt.want[i] {
					t.Errorf("results[%d] = %s, want %s", i, r.PointID, tt.want[i])
				}
			}
		})
	}
}

func TestMemoryStore_Errors(t *testing.T) {
	ctx := context.Background()
	s := seeded(t)

	if _, err := s.Search(ctx, "missing", []float32{1, 0}, 1, nil); !errors.Is(err, vectorstore.ErrCollectionNotFound) {
		t.Errorf("Search() on missing collection error = %v", err)
	}
	if _, err := s.Search(ctx, "run", []float32{1, 0}, 0, nil); err == nil {
		t.Error("Search() with k=0 should fail")
	}
	if _, err := s.Search(ctx, "run", []float32{1, 0, 0}, 1, nil); err == nil {
		t.Error("Search() with wrong dimension should fail")
	}
	if err := s.Upsert(ctx, "run", []vectorstore.Point{{ID: "x", Vec: []float32{1}}}); err == nil {
		t.Error("Upsert() with wrong dimension should fail")
	}
	if err := s.EnsureCollection(ctx, "run", 3); err == nil {
		t.Error("EnsureCollection() with different size should fail")
	}
	if err := s.Upsert(ctx, "run", nil); err != nil {
		t.Errorf("Upsert() with no points error = %v", err)
	}
}

func TestMemoryStore_InfoAndDrop(t *testing.T) {
	ctx := context.Background()
	s := seeded(t)

	info, err := s.CollectionInfo(ctx, "run")
	if err != nil {
		t.Fatalf("CollectionInfo() error = %v", err)
	}
	if info.PointsCount != 3 || info.VectorSize != 2 {
		t.Errorf("CollectionInfo() = %+v", info)
	}

	// Upserting an existing ID replaces it.
	if err := s.Upsert(ctx, "run", []vectorstore.Point{{ID: "east", Vec: []float32{0, 1}}}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	info, _ = s.CollectionInfo(ctx, "run")
	if info.PointsCount != 3 {
		t.Errorf("PointsCount after replace = %d, want 3", info.PointsCount)
	}

	if err := s.DropCollection(ctx, "run"); err != nil {
		t.Fatalf("DropCollection() error = %v", err)
	}
	if _, err := s.CollectionInfo(ctx, "run"); !errors.Is(err, vectorstore.ErrCollectionNotFound) {
		t.Errorf("CollectionInfo() after drop error = %v", err)
	}
	if err := s.Health(ctx); err != nil {
		t.Errorf("Health() error = %v", err)
	}
}

func TestMemoryStore_ConcurrentSearch(t *testing.T) {
	s := seeded(t)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Search(context.Background(), "run", []float32{1, 1}, 2, nil); err != nil {
				t.Errorf("Search() error = %v", err)
			}
		}()
	}
	wg.Wait()
}
