package domain

import "errors"

// Sentinel errors for the ingestion and retrieval pipeline. Adapters wrap
// these with context; callers classify with errors.Is.
var (
	// ErrUnsupportedFormat means no processor is registered for the file type.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrExtraction means a document could not be read or parsed.
	ErrExtraction = errors.New("document extraction failed")

	// ErrEmbedding means an embedding call failed; the whole batch is void.
	ErrEmbedding = errors.New("embedding failed")

	// ErrStore means the vector store rejected an operation or is unreachable.
	ErrStore = errors.New("vector store error")

	// ErrDimensionMismatch means an existing collection has a different
	// vector dimension. Requires operator intervention, never retried.
	ErrDimensionMismatch = errors.New("collection dimension mismatch")

	// ErrRetrieval wraps any upstream failure during a query.
	ErrRetrieval = errors.New("retrieval failed")

	// ErrTracker means fingerprint state could not be read or persisted.
	// Fatal for an ingestion run.
	ErrTracker = errors.New("file tracker error")
)
