package assistant

import "errors"

var (
	// ErrClassifierRequired is returned when a classifier is not provided.
	ErrClassifierRequired = errors.New("classifier required")

	// ErrRetrieverRequired is returned when a recipe retriever is not provided.
	ErrRetrieverRequired = errors.New("recipe retriever required")

	// ErrGeneratorRequired is returned when a generator is not provided.
	ErrGeneratorRequired = errors.New("generator required")

	// ErrNotConfigured is returned by placeholder collaborators.
	ErrNotConfigured = errors.New("service not configured")
)
