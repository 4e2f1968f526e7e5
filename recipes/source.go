package recipes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/poiesic/butler/core"
)

// DefaultFetchTimeout bounds one remote fetch.
const DefaultFetchTimeout = 60 * time.Second

// Source provides the raw recipe corpus.
type Source interface {
	Fetch(ctx context.Context) ([]core.Recipe, error)
}

// HTTPSource reads a JSON array of recipes with a GET request.
type HTTPSource struct {
	url    string
	client *http.Client
}

// NewHTTPSource creates a source for url. A nil client gets one with
// DefaultFetchTimeout.
func NewHTTPSource(url string, client *http.Client) *HTTPSource {
	if client == nil {
		client = &http.Client{Timeout: DefaultFetchTimeout}
	}
	return &HTTPSource{url: url, client: client}
}

// Fetch downloads and decodes the corpus.
func (s *HTTPSource) Fetch(ctx context.Context) ([]core.Recipe, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: new request: %w", ErrFetchFailed, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: HTTP %d", ErrFetchFailed, resp.StatusCode)
	}

	var recipes []core.Recipe
	if err := json.NewDecoder(resp.Body).Decode(&recipes); err != nil {
		return nil, fmt.Errorf("%w: decoding body: %w", ErrFetchFailed, err)
	}
	return recipes, nil
}
