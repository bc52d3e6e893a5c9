package embedding

import (
	"context"
	"fmt"
	"sync"
	"testing"
)

func TestEmbeddingCache_GetSet(t *testing.T) {
	c := NewEmbeddingCache(2)
	if v, ok := c.Get("a"); ok || v != nil {
		t.Fatal("expected miss")
	}
	c.Set("a", []float32{1, 2, 3})
	v, ok := c.Get("a")
	if !ok || len(v) != 3 || v[0] != 1 {
		t.Errorf("Get: got %v, %v", v, ok)
	}
	c.Set("b", []float32{4, 5})
	c.Set("c", []float32{6}) // evicts a
	if _, ok := c.Get("a"); ok {
		t.Error("expected a to be evicted")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("expected b to remain")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("expected c to be present")
	}
}

// Exercises Get/Set from many goroutines; run with -race. Every Get bumps
// recency, so reads must hold the write lock too.
func TestEmbeddingCache_ConcurrentAccess(t *testing.T) {
	c := NewEmbeddingCache(16)
	for i := 0; i < 8; i++ {
		c.Set(fmt.Sprintf("key-%d", i), []float32{float32(i)})
	}

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("key-%d", (g+i)%12)
				if _, ok := c.Get(key); !ok {
					c.Set(key, []float32{float32(i)})
				}
			}
		}(g)
	}
	wg.Wait()

	if _, ok := c.Get("key-0"); !ok {
		c.Set("key-0", []float32{0})
	}
}

// countingEmbedder counts delegated calls to verify cache hits.
type countingEmbedder struct {
	*MockEmbedder
	embedCalls int
	batchCalls int
}

func (e *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.embedCalls++
	return e.MockEmbedder.Embed(ctx, text)
}

func (e *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.batchCalls++
	return e.MockEmbedder.EmbedBatch(ctx, texts)
}

func TestCachedEmbedder_Embed(t *testing.T) {
	inner := &countingEmbedder{MockEmbedder: NewMockEmbedder(8)}
	e := NewCachedEmbedder(inner, 10)
	ctx := context.Background()

	v1, err := e.Embed(ctx, "hello")
	if err != nil {
		t.Fatal(err)
	}
	v2, err := e.Embed(ctx, "hello")
	if err != nil {
		t.Fatal(err)
	}
	if inner.embedCalls != 1 {
		t.Errorf("expected 1 delegated call, got %d", inner.embedCalls)
	}
	for i := range v1 {
		if v1[i] != v2[i] {
			t.Fatal("cached embedding differs")
		}
	}
}

func TestCachedEmbedder_EmbedBatchPartialHit(t *testing.T) {
	inner := &countingEmbedder{MockEmbedder: NewMockEmbedder(8)}
	e := NewCachedEmbedder(inner, 10)
	ctx := context.Background()

	if _, err := e.Embed(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	vecs, err := e.EmbedBatch(ctx, []string{"a", "b", "c"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vecs))
	}
	for i, v := range vecs {
		if len(v) != 8 {
			t.Errorf("vector %d has dimension %d", i, len(v))
		}
	}
	if inner.batchCalls != 1 {
		t.Errorf("expected 1 batch call for misses, got %d", inner.batchCalls)
	}
	// All cached now
	if _, err := e.EmbedBatch(ctx, []string{"a", "b", "c"}); err != nil {
		t.Fatal(err)
	}
	if inner.batchCalls != 1 {
		t.Errorf("expected no further batch calls, got %d", inner.batchCalls)
	}
}
