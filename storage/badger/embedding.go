package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/butler/storage"
)

// EmbeddingCache implements storage.EmbeddingCache on BadgerDB.
type EmbeddingCache struct {
	backend *Backend
	logger  *slog.Logger
}

var _ storage.EmbeddingCache = (*EmbeddingCache)(nil)

// NewEmbeddingCache creates an embedding cache on an open backend.
// The backend stays owned by the caller.
func NewEmbeddingCache(backend *Backend) (storage.EmbeddingCache, error) {
	if backend == nil {
		return nil, errors.New("badger backend required")
	}
	return &EmbeddingCache{
		backend: backend,
		logger:  slog.Default().With("component", "embedding-cache"),
	}, nil
}

// GetVectors looks up every text; misses are nil entries.
func (c *EmbeddingCache) GetVectors(ctx context.Context, model string, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		for i, text := range texts {
			if err := ctx.Err(); err != nil {
				return err
			}
			item, err := tx.Get(makeEmbeddingKey(model, text))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			err = item.Value(func(val []byte) error {
				v, err := storage.UnmarshalVector(val)
				if err != nil {
					return err
				}
				out[i] = v
				return nil
			})
			if err != nil {
				c.logger.Warn("dropping unreadable cache entry", "model", model, "err", err)
				out[i] = nil
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PutVectors stores vectors[i] under texts[i].
func (c *EmbeddingCache) PutVectors(ctx context.Context, model string, texts []string, vectors [][]float32) error {
	if len(texts) != len(vectors) {
		return fmt.Errorf("%w: %d texts but %d vectors", storage.ErrInvalidQuery, len(texts), len(vectors))
	}
	return c.backend.WithWriteBatch(func(wb *badger.WriteBatch) error {
		for i, text := range texts {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := wb.Set(makeEmbeddingKey(model, text), storage.MarshalVector(vectors[i])); err != nil {
				return err
			}
		}
		return nil
	})
}

// Count returns the number of cached vectors.
func (c *EmbeddingCache) Count(ctx context.Context) (int, error) {
	count := 0
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(embeddingPrefix)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return ctx.Err()
	}, false)
	return count, err
}

// Close is a no-op; the backend is closed by its owner.
func (c *EmbeddingCache) Close() error {
	return nil
}
