package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/kaiwa/internal/embedding"
	"github.com/hyperjump/kaiwa/internal/extract"
	"github.com/hyperjump/kaiwa/internal/vector"
)

func newTestPipeline(t *testing.T) (*Pipeline, *vector.Index, *embedding.MockEmbedder) {
	t.Helper()
	embedder := embedding.NewMockEmbedder(8)
	idx, err := vector.NewIndex(8)
	if err != nil {
		t.Fatal(err)
	}
	p := NewPipeline(extract.NewExtractor(), NewChunker(20, 5), embedder, idx, "", nil)
	return p, idx, embedder
}

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0600); err != nil {
			t.Fatal(err)
		}
	}
}

func TestPipeline_Ingest(t *testing.T) {
	p, idx, embedder := newTestPipeline(t)
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"sky.txt":   "The sky is blue.",
		"water.txt": "Water is wet and clear.",
	})

	res, err := p.Ingest(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if res.Documents != 2 {
		t.Errorf("Documents=%d", res.Documents)
	}
	if res.Chunks < 1 || idx.Size() != res.Chunks {
		t.Errorf("Chunks=%d, index size=%d", res.Chunks, idx.Size())
	}

	// The exact chunk text must be retrievable by its own embedding.
	q, _ := embedder.Embed(context.Background(), "The sky is blue.")
	results, err := idx.Search(context.Background(), q, 4)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, r := range results {
		if r.Chunk.Text == "The sky is blue." {
			found = true
		}
	}
	if !found {
		t.Error("ingested chunk not retrievable")
	}
}

func TestPipeline_IngestEmptyDir(t *testing.T) {
	p, idx, _ := newTestPipeline(t)
	_, err := p.Ingest(context.Background(), t.TempDir())
	if err != ErrNoDocuments {
		t.Errorf("expected ErrNoDocuments, got %v", err)
	}
	if idx.Indexed() {
		t.Error("index should stay unbuilt")
	}
}

func TestPipeline_SkipsUnreadableKeepsBatch(t *testing.T) {
	p, idx, _ := newTestPipeline(t)
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"good.txt":   "Readable content here.",
		"broken.pdf": "this is not a real pdf",
	})

	res, err := p.Ingest(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if res.Documents != 1 || res.Skipped != 1 {
		t.Errorf("Documents=%d Skipped=%d", res.Documents, res.Skipped)
	}
	if idx.Size() == 0 {
		t.Error("good document should be indexed")
	}
}

func TestPipeline_AllUnreadableLeavesPriorIndex(t *testing.T) {
	p, idx, embedder := newTestPipeline(t)
	ctx := context.Background()

	first := t.TempDir()
	writeFiles(t, first, map[string]string{"a.txt": "First generation content."})
	if _, err := p.Ingest(ctx, first); err != nil {
		t.Fatal(err)
	}
	sizeBefore := idx.Size()

	second := t.TempDir()
	writeFiles(t, second, map[string]string{"bad.docx": "not a zip"})
	_, err := p.Ingest(ctx, second)
	if err != ErrNoDocuments {
		t.Fatalf("expected ErrNoDocuments, got %v", err)
	}
	if idx.Size() != sizeBefore {
		t.Errorf("prior index modified: size %d -> %d", sizeBefore, idx.Size())
	}
	q, _ := embedder.Embed(ctx, "First generation content.")
	if _, err := idx.Search(ctx, q, 1); err != nil {
		t.Errorf("prior index should stay queryable: %v", err)
	}
}

func TestPipeline_AllEmptyFilesRejected(t *testing.T) {
	p, idx, _ := newTestPipeline(t)
	ctx := context.Background()

	// Readable but empty (whitespace normalizes away): no chunks can be built.
	empty := t.TempDir()
	writeFiles(t, empty, map[string]string{"blank.txt": "   \n\t  "})
	_, err := p.Ingest(ctx, empty)
	if err != ErrNoDocuments {
		t.Fatalf("expected ErrNoDocuments for an all-empty batch, got %v", err)
	}
	if idx.Indexed() {
		t.Error("empty batch must not install a generation")
	}

	// With a prior index, an all-empty batch leaves it intact.
	good := t.TempDir()
	writeFiles(t, good, map[string]string{"a.txt": "real content here"})
	if _, err := p.Ingest(ctx, good); err != nil {
		t.Fatal(err)
	}
	sizeBefore := idx.Size()
	if _, err := p.Ingest(ctx, empty); err != ErrNoDocuments {
		t.Fatalf("expected ErrNoDocuments, got %v", err)
	}
	if idx.Size() != sizeBefore {
		t.Errorf("prior generation modified: size %d -> %d", sizeBefore, idx.Size())
	}
}

func TestPipeline_SecondUploadDiscardsFirst(t *testing.T) {
	p, idx, embedder := newTestPipeline(t)
	ctx := context.Background()

	first := t.TempDir()
	writeFiles(t, first, map[string]string{"a.txt": "unique-first-marker"})
	if _, err := p.Ingest(ctx, first); err != nil {
		t.Fatal(err)
	}

	second := t.TempDir()
	writeFiles(t, second, map[string]string{"b.txt": "completely different text"})
	if _, err := p.Ingest(ctx, second); err != nil {
		t.Fatal(err)
	}

	q, _ := embedder.Embed(ctx, "unique-first-marker")
	results, err := idx.Search(ctx, q, 10)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range results {
		if r.Chunk.Text == "unique-first-marker" {
			t.Error("first upload's chunk survived the second rebuild")
		}
	}
}

func TestPipeline_PersistsIndex(t *testing.T) {
	embedder := embedding.NewMockEmbedder(8)
	idx, _ := vector.NewIndex(8)
	path := filepath.Join(t.TempDir(), "index.bin")
	p := NewPipeline(extract.NewExtractor(), NewChunker(20, 5), embedder, idx, path, nil)

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.txt": "Persist me."})
	if _, err := p.Ingest(context.Background(), dir); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("index snapshot not written: %v", err)
	}

	restored, _ := vector.NewIndex(8)
	if err := restored.Load(path); err != nil {
		t.Fatal(err)
	}
	if restored.Size() != idx.Size() {
		t.Errorf("restored size %d, want %d", restored.Size(), idx.Size())
	}
}
