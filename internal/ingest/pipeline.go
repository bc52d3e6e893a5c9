package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/hyperjump/kaiwa/internal/embedding"
	"github.com/hyperjump/kaiwa/internal/extract"
	"github.com/hyperjump/kaiwa/internal/models"
	"github.com/hyperjump/kaiwa/internal/vector"
	"go.uber.org/zap"
)

// ErrNoDocuments is returned when an upload batch contains no readable
// documents. The index is left untouched in that case; a prior generation,
// if any, stays queryable.
var ErrNoDocuments = errors.New("no readable documents in batch")

// Result summarizes one successful ingestion.
type Result struct {
	Documents int `json:"documents"`
	Skipped   int `json:"skipped"`
	Chunks    int `json:"chunks"`
}

// Pipeline turns a directory of uploaded files into a new index generation:
// extract each file, chunk per document, embed every chunk, and atomically
// replace the index content. Each upload batch rebuilds the whole index;
// there is no incremental re-indexing.
type Pipeline struct {
	extractor *extract.Extractor
	chunker   *Chunker
	embedder  embedding.Embedder
	index     *vector.Index
	indexPath string
	logger    *zap.Logger
}

// NewPipeline creates an ingestion pipeline. indexPath may be empty to skip
// persisting the index snapshot after a rebuild.
func NewPipeline(
	extractor *extract.Extractor,
	chunker *Chunker,
	embedder embedding.Embedder,
	index *vector.Index,
	indexPath string,
	logger *zap.Logger,
) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		index:     index,
		indexPath: indexPath,
		logger:    logger,
	}
}

// Ingest processes every file in dir (non-recursive). Unreadable files are
// skipped and logged; they never abort the batch. Returns ErrNoDocuments if
// nothing could be loaded. On success the previous index generation has been
// replaced; on any error it remains queryable.
func (p *Pipeline) Ingest(ctx context.Context, dir string) (*Result, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read upload directory: %w", err)
	}

	batch := uuid.New().String()[:8]
	var docs []models.Document
	skipped := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		path := filepath.Join(dir, name)
		if !extract.Supported(strings.ToLower(filepath.Ext(name))) {
			p.logger.Debug("ingest skipping unsupported file", zap.String("file", name))
			continue
		}
		text, err := p.extractor.Extract(path)
		if err != nil {
			p.logger.Warn("ingest skipping unreadable document", zap.String("file", name), zap.Error(err))
			skipped++
			continue
		}
		docs = append(docs, models.Document{
			ID:     fmt.Sprintf("%s_%d", batch, len(docs)),
			Source: name,
			Text:   Normalize(text),
		})
	}
	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}

	// Chunk boundaries never cross document boundaries.
	var chunks []models.Chunk
	for _, doc := range docs {
		chunks = append(chunks, p.chunker.Chunk(doc.ID, doc.Source, doc.Text)...)
	}
	if len(chunks) == 0 {
		// Every readable file was empty after normalization. Installing a
		// zero-chunk generation would flip the service to "indexed" while
		// nothing is retrievable, so keep the prior generation instead.
		return nil, ErrNoDocuments
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if err := p.index.Rebuild(ctx, chunks, vectors); err != nil {
		return nil, fmt.Errorf("rebuild index: %w", err)
	}
	if p.indexPath != "" {
		// Persistence is best effort; the in-memory generation is already live.
		if err := p.index.Save(p.indexPath); err != nil {
			p.logger.Warn("ingest failed to persist index", zap.String("path", p.indexPath), zap.Error(err))
		}
	}

	p.logger.Info("ingest complete",
		zap.Int("documents", len(docs)),
		zap.Int("skipped", skipped),
		zap.Int("chunks", len(chunks)),
	)
	return &Result{Documents: len(docs), Skipped: skipped, Chunks: len(chunks)}, nil
}
