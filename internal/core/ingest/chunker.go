package ingest

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultMaxChunkChars bounds chunk size when no override is configured.
const DefaultMaxChunkChars = 1000

// chunksPerPage is how many chunks share a page number before the page
// counter advances. This is a coarse heuristic carried over for citation
// compatibility, not a mapping to real document pages.
const chunksPerPage = 10

// Chunk is one retrievable span of extracted text, addressed by
// (page, paragraph).
type Chunk struct {
	Page      int
	Paragraph int
	Text      string
}

var blankLine = regexp.MustCompile(`\n\s*\n`)

// SplitIntoChunks splits text on blank-line boundaries and greedily packs
// consecutive paragraphs into chunks of at most maxChars runes. A single
// paragraph longer than maxChars becomes its own oversized chunk rather
// than being truncated. Pure function: same input, same output.
func SplitIntoChunks(text string, maxChars int) []Chunk {
	if maxChars <= 0 {
		maxChars = DefaultMaxChunkChars
	}

	var chunks []Chunk
	page, paragraph := 1, 1
	var current strings.Builder
	currentLen := 0

	for _, p := range blankLine.Split(text, -1) {
		trimmed := strings.TrimSpace(p)
		if trimmed == "" {
			continue
		}
		size := utf8.RuneCountInString(trimmed)

		if currentLen+size > maxChars && currentLen > 0 {
			chunks = append(chunks, Chunk{Page: page, Paragraph: paragraph, Text: current.String()})
			current.Reset()
			current.WriteString(trimmed)
			currentLen = size

			paragraph++
			if paragraph > chunksPerPage {
				page++
				paragraph = 1
			}
			continue
		}

		if currentLen > 0 {
			current.WriteString("\n\n")
			currentLen += 2
		}
		current.WriteString(trimmed)
		currentLen += size
	}

	if currentLen > 0 {
		chunks = append(chunks, Chunk{Page: page, Paragraph: paragraph, Text: current.String()})
	}
	return chunks
}
