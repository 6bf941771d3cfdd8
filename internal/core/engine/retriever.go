package engine

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/nabilhamdi/waraqa/internal/core"
)

// maxSelectedChunks caps how many chunks ground a single answer.
const maxSelectedChunks = 3

// minKeywordLen filters short tokens; stop words fall out as a side
// effect of the length cutoff, not through a stop-word list.
const minKeywordLen = 3

var _ core.Retriever = (*KeywordRetriever)(nil)

// KeywordRetriever scores chunks by naive keyword overlap with the query.
// It is a placeholder strategy: an embedding-based retriever can replace
// it behind the same interface without touching callers.
type KeywordRetriever struct {
	store core.Store
}

func NewKeywordRetriever(store core.Store) *KeywordRetriever {
	return &KeywordRetriever{store: store}
}

// Select loads the file's chunks in page order, scores each by how many
// query keywords it contains, and returns up to 3 with score > 0, sorted
// by descending score. Ties keep page order (stable sort).
func (r *KeywordRetriever) Select(ctx context.Context, fileID, query string) ([]core.ScoredChunk, error) {
	keywords := tokenizeQuery(query)

	chunks, err := r.store.ListFileContents(ctx, fileID)
	if err != nil {
		return nil, err
	}

	var scored []core.ScoredChunk
	for _, ch := range chunks {
		contentLower := strings.ToLower(ch.Content)
		score := 0
		for _, kw := range keywords {
			// One point per matching keyword, regardless of how many
			// times it occurs in the chunk.
			if strings.Contains(contentLower, kw) {
				score++
			}
		}
		if score > 0 {
			scored = append(scored, core.ScoredChunk{Chunk: ch, Score: float64(score)})
		}
	}

	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].Score > scored[b].Score
	})
	if len(scored) > maxSelectedChunks {
		scored = scored[:maxSelectedChunks]
	}
	return scored, nil
}

// tokenizeQuery lower-cases the query, splits on whitespace, and keeps
// tokens longer than minKeywordLen runes.
func tokenizeQuery(query string) []string {
	var keywords []string
	for _, tok := range strings.Fields(strings.ToLower(query)) {
		if utf8.RuneCountInString(tok) > minKeywordLen {
			keywords = append(keywords, tok)
		}
	}
	return keywords
}
