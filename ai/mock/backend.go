package mock

import (
	"context"
	"sync"

	"github.com/poiesic/butler/ai"
)

// MockBackend is a test double for ai.Backend.
// By default it answers every call with Response.
type MockBackend struct {
	name string

	// Response is returned when Err and GenerateFunc are unset.
	Response string

	// Err, if set, is returned from every call.
	Err error

	// GenerateFunc overrides the default behavior if set.
	GenerateFunc func(ctx context.Context, parts []ai.Part) (string, error)

	mu    sync.Mutex
	calls [][]ai.Part
}

// NewMockBackend creates a backend that answers with response.
func NewMockBackend(name, response string) *MockBackend {
	return &MockBackend{name: name, Response: response}
}

// NewFailingBackend creates a backend that always fails with err.
func NewFailingBackend(name string, err error) *MockBackend {
	return &MockBackend{name: name, Err: err}
}

// Name returns the configured backend name.
func (b *MockBackend) Name() string {
	return b.name
}

// Generate records the call and returns the scripted result.
func (b *MockBackend) Generate(ctx context.Context, parts []ai.Part) (string, error) {
	b.mu.Lock()
	b.calls = append(b.calls, parts)
	b.mu.Unlock()

	if b.GenerateFunc != nil {
		return b.GenerateFunc(ctx, parts)
	}
	if b.Err != nil {
		return "", b.Err
	}
	return b.Response, nil
}

// CallCount returns how many times Generate was called.
func (b *MockBackend) CallCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}

// LastPrompt returns the text of the most recent call, or "" if none.
func (b *MockBackend) LastPrompt() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.calls) == 0 {
		return ""
	}
	return ai.PromptText(b.calls[len(b.calls)-1])
}

// LastParts returns the parts of the most recent call.
func (b *MockBackend) LastParts() []ai.Part {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.calls) == 0 {
		return nil
	}
	return b.calls[len(b.calls)-1]
}
