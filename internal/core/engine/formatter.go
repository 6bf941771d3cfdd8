package engine

import (
	"github.com/nabilhamdi/waraqa/internal/core"
	"github.com/nabilhamdi/waraqa/internal/models"
)

// FormatSources maps scored chunks to citation refs by following the
// chunk -> parent file relation. Pure transformation: no I/O, and an
// empty selection yields nil so the sources list is omitted from JSON.
func FormatSources(file *models.File, scored []core.ScoredChunk) []core.SourceRef {
	if file == nil || len(scored) == 0 {
		return nil
	}
	refs := make([]core.SourceRef, len(scored))
	for i, sc := range scored {
		refs[i] = core.SourceRef{
			FileContentID:  sc.Chunk.ID,
			File:           file.OriginalFilename,
			Page:           sc.Chunk.PageNumber,
			Paragraph:      sc.Chunk.ParagraphNumber,
			RelevanceScore: sc.Score,
		}
	}
	return refs
}
