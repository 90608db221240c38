package indexer

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"ytrag/internal/ingest"
)

const (
	// TokensPerRune is an approximation for token counting (4 chars per token).
	TokensPerRune = 4.0
	// WordsPerMinute is the reading speed used for read-time estimates.
	WordsPerMinute = 200
)

// Stats describes one index build.
type Stats struct {
	Videos                int       `json:"videos"`
	Chunks                int       `json:"chunks"`
	AverageChunksPerVideo float64   `json:"average_chunks_per_video"`
	Words                 int       `json:"words"`
	ReadMinutes           float64   `json:"read_minutes"`
	EstimatedTokens       int       `json:"estimated_tokens"`
	ChunkRunes            RuneStats `json:"chunk_runes"`
	ChunkSize             int       `json:"chunk_size"`
	ChunkOverlap          int       `json:"chunk_overlap"`
}

// RuneStats contains statistics about chunk lengths.
type RuneStats struct {
	// Min is the minimum rune count across all chunks.
	Min int `json:"min"`
	// Max is the maximum rune count across all chunks.
	Max int `json:"max"`
	// Mean is the mean rune count across all chunks.
	Mean float64 `json:"mean"`
	// P95 is the 95th percentile rune count.
	P95 int `json:"p95"`
}

func computeStats(chunks []Chunk, summary *ingest.Summary, splitter *Splitter) Stats {
	stats := Stats{
		Videos:       summary.Succeeded,
		Chunks:       len(chunks),
		ChunkSize:    splitter.Size(),
		ChunkOverlap: splitter.Overlap(),
	}

	for _, r := range summary.Successes() {
		words := r.WordCount
		if words == 0 {
			words = len(strings.Fields(r.Text))
		}
		stats.Words += words
		stats.EstimatedTokens += int(math.Round(float64(utf8.RuneCountInString(r.Text)) / TokensPerRune))
	}
	stats.ReadMinutes = math.Round(float64(stats.Words)/WordsPerMinute*10) / 10

	if stats.Videos > 0 {
		stats.AverageChunksPerVideo = math.Round(float64(stats.Chunks)/float64(stats.Videos)*100) / 100
	}

	counts := make([]int, 0, len(chunks))
	for _, c := range chunks {
		counts = append(counts, utf8.RuneCountInString(c.Text))
	}
	stats.ChunkRunes = computeRuneStats(counts)
	return stats
}

// computeRuneStats computes min, max, mean, and p95 from rune counts.
func computeRuneStats(counts []int) RuneStats {
	if len(counts) == 0 {
		return RuneStats{}
	}

	sorted := make([]int, len(counts))
	copy(sorted, counts)
	sort.Ints(sorted)

	sum := 0
	for _, c := range counts {
		sum += c
	}
	mean := float64(sum) / float64(len(counts))

	// Nearest rank: ceil(0.95*n), 1-based.
	p95Index := max((95*len(sorted)+99)/100-1, 0)

	return RuneStats{
		Min:  sorted[0],
		Max:  sorted[len(sorted)-1],
		Mean: math.Round(mean*100) / 100, // Round to 2 decimal places
		P95:  sorted[p95Index],
	}
}
