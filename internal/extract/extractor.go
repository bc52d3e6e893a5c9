// Package extract provides text extraction from uploaded document formats.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Extractor extracts plain text from document files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// supportedExtensions is the upload whitelist, with leading dots.
var supportedExtensions = []string{".pdf", ".docx", ".xlsx", ".txt", ".md"}

// Supported reports whether the extension (with leading dot, any case) is a
// format this extractor understands. The upload boundary uses this as its
// whitelist.
func Supported(ext string) bool {
	ext = strings.ToLower(ext)
	for _, s := range supportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// Extensions returns the supported extension whitelist.
func Extensions() []string {
	out := make([]string, len(supportedExtensions))
	copy(out, supportedExtensions)
	return out
}

// Extract reads the file at path and returns its text content.
// For plain text files (.txt, .md), content is returned as-is (UTF-8 validated).
// For PDF, DOCX, and XLSX, text is extracted from the binary format.
// Returns an error if the file cannot be read or parsed; the ingestion
// pipeline skips such files rather than aborting the batch.
func (e *Extractor) Extract(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	return e.ExtractBytes(content, ext)
}

// ExtractBytes extracts text from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf").
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	switch ext {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	case ".xlsx":
		return extractExcel(content)
	case ".txt", ".md", "":
		return extractPlain(content)
	default:
		// Unknown extension: treat as plain text
		return extractPlain(content)
	}
}
