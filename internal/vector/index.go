// Package vector provides the in-process vector index for chunk retrieval.
//
// The index holds one complete generation of embedded chunks behind an atomic
// pointer. Rebuild constructs a fresh generation off to the side and swaps it
// in with a single pointer store, so concurrent searches observe either the
// fully-previous or the fully-new generation, never a partial one. When two
// rebuilds race, the last swap wins.
package vector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/hyperjump/kaiwa/internal/models"
)

// ErrNotIndexed is returned by Search when no generation has ever been built
// (neither rebuilt nor loaded from disk). Callers translate it into a
// user-facing "no documents yet" response.
var ErrNotIndexed = errors.New("no document index has been built")

// Result is a single search hit: the matched chunk and its similarity score.
type Result struct {
	Chunk models.Chunk
	Score float64 // inner product; cosine similarity for normalized vectors
}

// snapshot is one immutable index generation. chunks[i] corresponds to
// vectors[i]; neither slice is mutated after construction.
type snapshot struct {
	chunks  []models.Chunk
	vectors [][]float32
}

// Index is a brute-force inner-product index over the current generation of
// embedded chunks.
type Index struct {
	dimensions int
	current    atomic.Pointer[snapshot]
}

// NewIndex creates an empty index for vectors of the given dimension.
// The index reports ErrNotIndexed until the first successful Rebuild or Load.
func NewIndex(dimensions int) (*Index, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &Index{dimensions: dimensions}, nil
}

// Rebuild replaces the entire index content atomically. chunks[i] must
// correspond to vectors[i]. The previous generation stays queryable until the
// new one is fully constructed; on any error the index is left unchanged.
func (ix *Index) Rebuild(ctx context.Context, chunks []models.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks and vectors length mismatch: %d vs %d", len(chunks), len(vectors))
	}
	snap := &snapshot{
		chunks:  make([]models.Chunk, len(chunks)),
		vectors: make([][]float32, len(vectors)),
	}
	copy(snap.chunks, chunks)
	for i, vec := range vectors {
		if len(vec) != ix.dimensions {
			return fmt.Errorf("vector %d dimension mismatch: got %d, expected %d", i, len(vec), ix.dimensions)
		}
		v := make([]float32, ix.dimensions)
		copy(v, vec)
		snap.vectors[i] = v
	}
	ix.current.Store(snap)
	return nil
}

// Search returns the top-k chunks by inner product (cosine similarity for
// normalized vectors), best first. Ties keep the chunks' insertion order.
// Returns ErrNotIndexed if no generation exists yet.
func (ix *Index) Search(ctx context.Context, query []float32, k int) ([]Result, error) {
	if len(query) != ix.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), ix.dimensions)
	}
	snap := ix.current.Load()
	if snap == nil {
		return nil, ErrNotIndexed
	}
	if k <= 0 || len(snap.chunks) == 0 {
		return nil, nil
	}
	scores := make([]Result, len(snap.chunks))
	for i, vec := range snap.vectors {
		scores[i] = Result{Chunk: snap.chunks[i], Score: InnerProduct(query, vec)}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })
	if k > len(scores) {
		k = len(scores)
	}
	return scores[:k], nil
}

// Size returns the number of chunks in the current generation, 0 when none.
func (ix *Index) Size() int {
	snap := ix.current.Load()
	if snap == nil {
		return 0
	}
	return len(snap.chunks)
}

// Indexed reports whether any generation has been built.
func (ix *Index) Indexed() bool {
	return ix.current.Load() != nil
}

// Dimensions returns the vector dimension the index was created with.
func (ix *Index) Dimensions() int {
	return ix.dimensions
}
