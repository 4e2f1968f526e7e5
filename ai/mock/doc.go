// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.Embedder, ai.Backend and
// ai.AIProvider for use in unit tests. The mocks allow tests to run without
// external AI service dependencies and enable controlled, deterministic behavior.
//
// # Usage in Tests
//
//	embedder := mock.NewMockEmbedder().WithVector("hi", []float32{1, 0})
//	quota := mock.NewFailingBackend("a", llms.ErrQuotaExceeded)
//	ok := mock.NewMockBackend("b", "hello")
//	provider := mock.NewMockProviderWithServices(embedder, quota, ok)
//
//	// Check call counts
//	count := quota.CallCount()
//
// # Default Behavior
//
//   - MockEmbedder: Returns deterministic unit vectors based on text hash
//   - MockBackend: Returns its scripted response or error
//   - MockProvider: Aggregates mock embedder and backends
package mock
