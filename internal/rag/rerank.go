package rag

import (
	"slices"
	"strings"
	"unicode"

	"ytrag/internal/indexer"
)

const (
	lexicalLengthScale = float32(10.0)
	maxLexicalScore    = float32(0.4)
	titleMatchBonus    = float32(0.1)
)

var lexicalStopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "but": {}, "by": {},
	"for": {}, "from": {}, "has": {}, "have": {}, "in": {}, "is": {}, "it": {}, "of": {}, "on": {},
	"or": {}, "the": {}, "to": {}, "was": {}, "were": {}, "with": {},
	"what": {}, "which": {}, "who": {}, "how": {}, "does": {}, "do": {}, "video": {}, "videos": {},
}

type rankedChunk struct {
	indexer.ScoredChunk
	lexical float32
	final   float64
}

// rerank orders retrieved chunks by their fused retrieval score, normalized to
// [0,1] within the result set, plus a lexical bonus of at most maxLexicalScore.
// Ties keep retrieval order.
func rerank(query string, hits []indexer.ScoredChunk) []rankedChunk {
	if len(hits) == 0 {
		return nil
	}

	maxScore := 0.0
	for _, h := range hits {
		maxScore = max(maxScore, h.Score)
	}

	ranked := make([]rankedChunk, len(hits))
	for i, h := range hits {
		base := 0.0
		if maxScore > 0 {
			base = h.Score / maxScore
		}
		lex := lexicalScore(query, h.Text, h.Video.Title)
		ranked[i] = rankedChunk{ScoredChunk: h, lexical: lex, final: base + float64(lex)}
	}

	slices.SortStableFunc(ranked, func(a, b rankedChunk) int {
		switch {
		case a.final > b.final:
			return -1
		case a.final < b.final:
			return 1
		}
		return 0
	})
	return ranked
}

// lexicalScore computes a lightweight lexical relevance score for a chunk relative to a query.
// The score is normalized to remain in a predictable range so it can be blended with retrieval scores.
func lexicalScore(query, chunkText, title string) float32 {
	queryTokens := filterStopwords(tokenize(query))
	if len(queryTokens) == 0 {
		return 0
	}

	chunkTokens := tokenize(chunkText)
	if len(chunkTokens) == 0 {
		return 0
	}

	chunkFreq := make(map[string]int, len(chunkTokens))
	for _, token := range chunkTokens {
		chunkFreq[token]++
	}

	var rawMatches int
	for _, token := range queryTokens {
		rawMatches += chunkFreq[token]
	}

	score := (float32(rawMatches) / (1 + float32(len(chunkTokens)))) * lexicalLengthScale

	if titleTokens := tokenize(title); len(titleTokens) > 0 {
		titleSet := make(map[string]struct{}, len(titleTokens))
		for _, token := range titleTokens {
			titleSet[token] = struct{}{}
		}
		var titleMatches int
		for _, token := range queryTokens {
			if _, ok := titleSet[token]; ok {
				titleMatches++
			}
		}
		score += float32(titleMatches) * titleMatchBonus
	}

	if score > maxLexicalScore {
		return maxLexicalScore
	}
	if score < 0 {
		return 0
	}
	return score
}

func tokenize(text string) []string {
	if text == "" {
		return nil
	}

	var builder strings.Builder
	builder.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			builder.WriteRune(r)
		} else {
			builder.WriteRune(' ')
		}
	}
	tokens := strings.Fields(builder.String())
	if len(tokens) == 0 {
		return nil
	}
	return tokens
}

func filterStopwords(tokens []string) []string {
	if len(tokens) == 0 {
		return nil
	}

	result := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if _, isStop := lexicalStopwords[token]; isStop {
			continue
		}
		result = append(result, token)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
