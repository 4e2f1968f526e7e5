package intent

import (
	"context"
	"fmt"

	"github.com/poiesic/butler/ai"
	"github.com/poiesic/butler/core"
)

// Index is an immutable snapshot of embedded exemplars.
type Index struct {
	rows    []core.Exemplar
	// unit-length copies of the row vectors
	vectors [][]float32
	dim     int
}

// BuildIndex embeds the knowledge base in a single batch call.
//
// Vectors of phrases already present in previous are reused, so a rebuild
// only embeds what is new. previous may be nil.
func BuildIndex(ctx context.Context, embedder ai.Embedder, kb KnowledgeBase, previous *Index) (*Index, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	rows := kb.Exemplars()

	known := previous.vectorsByPhrase()
	var missing []string
	seen := make(map[string]bool)
	for i := range rows {
		if v, ok := known[rows[i].Phrase]; ok {
			rows[i].Vector = v
			continue
		}
		if !seen[rows[i].Phrase] {
			seen[rows[i].Phrase] = true
			missing = append(missing, rows[i].Phrase)
		}
	}

	if len(missing) > 0 {
		vectors, err := embedder.EmbedTexts(ctx, missing)
		if err != nil {
			return nil, fmt.Errorf("embedding %d exemplars: %w", len(missing), err)
		}
		if len(vectors) != len(missing) {
			return nil, fmt.Errorf("embedder returned %d vectors for %d exemplars", len(vectors), len(missing))
		}
		fresh := make(map[string][]float32, len(missing))
		for i, p := range missing {
			fresh[p] = vectors[i]
		}
		for i := range rows {
			if rows[i].Vector == nil {
				rows[i].Vector = fresh[rows[i].Phrase]
			}
		}
	}

	return NewIndex(rows)
}

// NewIndex builds an index from already-embedded rows.
func NewIndex(rows []core.Exemplar) (*Index, error) {
	vectors := make([][]float32, len(rows))
	for i := range rows {
		if err := core.ValidateExemplar(&rows[i]); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		vectors[i] = rows[i].Vector
	}
	dim, err := core.ValidateDimensions(vectors)
	if err != nil {
		return nil, err
	}
	idx := &Index{
		rows:    append([]core.Exemplar(nil), rows...),
		vectors: core.NormalizeAll(vectors),
		dim:     dim,
	}
	return idx, nil
}

// Len returns the number of rows.
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return len(x.rows)
}

// Dimensions returns the vector length, or 0 for an empty index.
func (x *Index) Dimensions() int {
	if x == nil {
		return 0
	}
	return x.dim
}

// Row returns the exemplar at position i.
func (x *Index) Row(i int) core.Exemplar {
	return x.rows[i]
}

// Nearest returns the row with the highest cosine similarity to query.
// The first row wins ties. An empty index returns (-1, 0).
func (x *Index) Nearest(query []float32) (int, float32, error) {
	if x.Len() == 0 {
		return -1, 0, nil
	}
	return core.Nearest(query, x.vectors)
}

func (x *Index) vectorsByPhrase() map[string][]float32 {
	out := make(map[string][]float32)
	if x == nil {
		return out
	}
	for _, r := range x.rows {
		out[r.Phrase] = r.Vector
	}
	return out
}
