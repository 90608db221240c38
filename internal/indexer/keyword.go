package indexer

import (
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
)

// keywordIndex is an in-memory BM25 index over the chunks of one run.
type keywordIndex struct {
	index bleve.Index
}

type keywordHit struct {
	ID    string
	Score float64
}

func newKeywordIndex() (*keywordIndex, error) {
	index, err := bleve.NewMemOnly(buildKeywordMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create keyword index: %w", err)
	}
	return &keywordIndex{index: index}, nil
}

func buildKeywordMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	chunkMapping := bleve.NewDocumentMapping()

	videoField := bleve.NewTextFieldMapping()
	videoField.Analyzer = keyword.Name
	videoField.Store = false
	videoField.Index = true
	chunkMapping.AddFieldMappingsAt(metaVideoID, videoField)

	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = standard.Name
	textField.Store = false
	textField.Index = true
	chunkMapping.AddFieldMappingsAt(metaText, textField)

	titleField := bleve.NewTextFieldMapping()
	titleField.Analyzer = standard.Name
	titleField.Store = false
	titleField.Index = true
	chunkMapping.AddFieldMappingsAt(metaVideoTitle, titleField)

	indexMapping.DefaultMapping = chunkMapping
	return indexMapping
}

func (k *keywordIndex) add(chunks []Chunk) error {
	batch := k.index.NewBatch()
	for _, c := range chunks {
		doc := map[string]any{
			metaText:       c.Text,
			metaVideoID:    c.Video.ID,
			metaVideoTitle: c.Video.Title,
		}
		if err := batch.Index(c.ID, doc); err != nil {
			return fmt.Errorf("failed to queue chunk %s: %w", c.ID, err)
		}
	}
	if err := k.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to index chunks: %w", err)
	}
	return nil
}

// search returns up to size hits for text, restricted to videoID when set.
func (k *keywordIndex) search(text, videoID string, size int) ([]keywordHit, error) {
	match := bleve.NewMatchQuery(text)
	match.SetField(metaText)

	var q query.Query = match
	if videoID != "" {
		videoQuery := bleve.NewTermQuery(videoID)
		videoQuery.SetField(metaVideoID)
		q = bleve.NewConjunctionQuery(match, videoQuery)
	}

	req := bleve.NewSearchRequest(q)
	req.Size = size

	res, err := k.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}

	hits := make([]keywordHit, 0, len(res.Hits))
	for _, hit := range res.Hits {
		hits = append(hits, keywordHit{ID: hit.ID, Score: hit.Score})
	}
	return hits, nil
}

func (k *keywordIndex) close() error {
	return k.index.Close()
}
