package badger

import "github.com/poiesic/butler/storage"

// Key prefixes for different data types
const (
	embeddingPrefix = "embvec:"
)

// makeEmbeddingKey generates the key for a cached vector.
// Format: prefix + blake2b-256(model, text)
func makeEmbeddingKey(model, text string) []byte {
	sum := storage.ContentKey(model, text)
	buf := make([]byte, 0, len(embeddingPrefix)+len(sum))
	buf = append(buf, embeddingPrefix...)
	return append(buf, sum...)
}
