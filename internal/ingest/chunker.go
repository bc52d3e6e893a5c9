// Package ingest provides document chunking and the upload ingestion pipeline.
package ingest

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/hyperjump/kaiwa/internal/models"
)

// Chunker splits text into fixed-length rune windows with a fixed overlap.
// Every chunk except possibly the last has exactly size runes; consecutive
// chunks from the same document share exactly overlap runes.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a chunker with the given window size and overlap, both
// in runes. overlap is clamped into [0, size-1]; size must be at least 1 and
// is clamped up when it is not.
func NewChunker(size, overlap int) *Chunker {
	if size < 1 {
		size = 1
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}
	return &Chunker{size: size, overlap: overlap}
}

// Chunk splits text into chunks for one document. The window slides forward
// by size-overlap runes each step; when the remaining text is shorter than
// size, the remainder is emitted as a final shorter chunk. Empty text yields
// nil. Deterministic; no side effects.
func (c *Chunker) Chunk(docID, source, text string) []models.Chunk {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}
	step := c.size - c.overlap
	chunks := make([]models.Chunk, 0, (n+step-1)/step)
	index := 0
	for start := 0; start < n; start += step {
		end := start + c.size
		if end > n {
			end = n
		}
		chunks = append(chunks, models.Chunk{
			ID:         fmt.Sprintf("%s_%d", docID, index),
			DocumentID: docID,
			Source:     source,
			Text:       string(runes[start:end]),
			Offset:     start,
			ChunkIndex: index,
		})
		index++
		if end == n {
			break
		}
	}
	return chunks
}

// Size returns the configured chunk size in runes.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the configured overlap in runes.
func (c *Chunker) Overlap() int { return c.overlap }

// Normalize prepares extracted text for chunking (trim, collapse whitespace).
func Normalize(text string) string {
	text = strings.TrimSpace(text)
	var b strings.Builder
	wasSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !wasSpace {
				b.WriteRune(' ')
				wasSpace = true
			}
		} else {
			b.WriteRune(r)
			wasSpace = false
		}
	}
	return b.String()
}
