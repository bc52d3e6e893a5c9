package vector

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/hyperjump/kaiwa/internal/models"
)

// Save writes the current generation to path so it survives restarts.
// Directory is created if needed. Format: dimension (4), n (4), then per
// chunk: id, document id, source, text (each length-prefixed), offset (4),
// chunk index (4), vector (dimension*4 bytes). With no generation built yet,
// Save is a no-op.
func (ix *Index) Save(path string) error {
	if path == "" {
		return nil
	}
	snap := ix.current.Load()
	if snap == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if err := binary.Write(w, binary.LittleEndian, uint32(ix.dimensions)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(snap.chunks))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for i, ch := range snap.chunks {
		for _, s := range []string{ch.ID, ch.DocumentID, ch.Source, ch.Text} {
			if err := writeString(w, s); err != nil {
				return fmt.Errorf("write chunk %d: %w", i, err)
			}
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(ch.Offset)); err != nil {
			return fmt.Errorf("write chunk %d offset: %w", i, err)
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(ch.ChunkIndex)); err != nil {
			return fmt.Errorf("write chunk %d index: %w", i, err)
		}
		if _, err := w.Write(float32SliceToBytes(snap.vectors[i])); err != nil {
			return fmt.Errorf("write chunk %d vector: %w", i, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush index file: %w", err)
	}
	return nil
}

// Load reads a saved generation from path and swaps it in. Dimensions must
// match. If the file does not exist, no error is returned and the index is
// unchanged (still unindexed if nothing was built).
func (ix *Index) Load(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()
	r := bufio.NewReader(f)
	var dim, n uint32
	if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
		return fmt.Errorf("read dimensions: %w", err)
	}
	if int(dim) != ix.dimensions {
		return fmt.Errorf("dimension mismatch: file has %d, index expects %d", dim, ix.dimensions)
	}
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return fmt.Errorf("read count: %w", err)
	}
	snap := &snapshot{
		chunks:  make([]models.Chunk, 0, n),
		vectors: make([][]float32, 0, n),
	}
	buf := make([]byte, ix.dimensions*4)
	for i := uint32(0); i < n; i++ {
		var ch models.Chunk
		fields := []*string{&ch.ID, &ch.DocumentID, &ch.Source, &ch.Text}
		for _, field := range fields {
			s, err := readString(r)
			if err != nil {
				return fmt.Errorf("read chunk %d: %w", i, err)
			}
			*field = s
		}
		var offset, index uint32
		if err := binary.Read(r, binary.LittleEndian, &offset); err != nil {
			return fmt.Errorf("read chunk %d offset: %w", i, err)
		}
		if err := binary.Read(r, binary.LittleEndian, &index); err != nil {
			return fmt.Errorf("read chunk %d index: %w", i, err)
		}
		ch.Offset = int(offset)
		ch.ChunkIndex = int(index)
		if _, err := io.ReadFull(r, buf); err != nil {
			return fmt.Errorf("read chunk %d vector: %w", i, err)
		}
		snap.chunks = append(snap.chunks, ch)
		snap.vectors = append(snap.vectors, bytesToFloat32Slice(buf))
	}
	ix.current.Store(snap)
	return nil
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := w.Write([]byte(s))
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
