package types

import "errors"

// Sentinel errors for common error conditions.
var (
	// ErrNoPages is returned when a splitting pattern matches zero times
	// against non-empty input. Callers must not treat the input as a
	// single page; the source either needs a different strategy or the
	// upstream format changed.
	ErrNoPages = errors.New("no pages found: splitting pattern did not match")

	// ErrInvalidConfig wraps every error returned by config validation.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrProviderNotAvailable is returned when no factory is registered
	// under the requested embedding provider name.
	ErrProviderNotAvailable = errors.New("provider not available")

	// ErrEmbeddingFailed wraps errors from the embedding provider.
	ErrEmbeddingFailed = errors.New("embedding failed")

	// ErrSearchFailed wraps errors from the vector store query.
	ErrSearchFailed = errors.New("search failed")
)
