package recipes

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/poiesic/butler/core"
)

// FileCache persists the normalized corpus as a JSON array.
type FileCache struct {
	path string
}

// NewFileCache creates a cache at path.
func NewFileCache(path string) *FileCache {
	return &FileCache{path: path}
}

// Path returns the cache file location.
func (c *FileCache) Path() string {
	return c.path
}

// Load reads the cached corpus. A missing file or an empty array is
// ErrCacheMiss; an unreadable or undecodable file is ErrCacheCorrupt
// wrapping the cause.
func (c *FileCache) Load() ([]core.Recipe, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCacheCorrupt, err)
	}

	var recipes []core.Recipe
	if err := json.Unmarshal(data, &recipes); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %w", ErrCacheCorrupt, c.path, err)
	}
	if len(recipes) == 0 {
		return nil, ErrCacheMiss
	}
	return recipes, nil
}

// Save overwrites the cache file atomically.
func (c *FileCache) Save(recipes []core.Recipe) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(recipes); err != nil {
		return fmt.Errorf("encoding recipes: %w", err)
	}

	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating cache dir: %w", err)
		}
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing temp cache file: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("renaming cache file: %w", err)
	}
	return nil
}
