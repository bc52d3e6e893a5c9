// Package models defines core data structures for documents, chunks, and chat.
package models

// Document is the extracted text of one uploaded file. Documents are
// transient: they exist between extraction and chunking and are not persisted
// themselves.
type Document struct {
	ID     string `json:"id"`     // stable per source file within a batch
	Source string `json:"source"` // original filename
	Text   string `json:"text"`
}

// Chunk is a fixed-length window of a document's text, the unit of embedding
// and retrieval. Every chunk of a document except possibly the last has
// exactly the configured length in runes, and consecutive chunks from the
// same document share exactly the configured overlap.
type Chunk struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	Source     string `json:"source"`
	Text       string `json:"text"`
	Offset     int    `json:"offset"` // rune offset into the document text
	ChunkIndex int    `json:"chunk_index"`
}
