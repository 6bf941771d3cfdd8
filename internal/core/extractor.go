package core

import (
	"context"

	"github.com/nabilhamdi/waraqa/internal/models"
)

// TextExtractor converts a stored document into plain text, dispatching
// strictly by lower-cased file extension. Unknown extensions fail with
// ErrUnsupportedFormat; I/O and parse problems fail with ErrReadFailure.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte, ext string) (string, error)
}

// ScoredChunk pairs a chunk with its relevance score for a query.
type ScoredChunk struct {
	Chunk models.FileContent
	Score float64
}

// Retriever selects the chunks of a file most relevant to a query.
// The current implementation is naive keyword overlap; the interface is
// what stays stable when an embedding-based strategy replaces it.
type Retriever interface {
	Select(ctx context.Context, fileID, query string) ([]ScoredChunk, error)
}
