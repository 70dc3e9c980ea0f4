package port

// Tracker persists per-file fingerprints so unchanged files are skipped
// across ingestion runs.
type Tracker interface {
	// Unchanged reports whether the file matches its recorded fingerprint.
	// Unknown files are never unchanged. Modification time equality is the
	// fast path; otherwise the content hash decides.
	Unchanged(path string) (bool, error)

	// Record persists the file's current fingerprint. Must only be called
	// after the file's chunks are durably upserted.
	Record(path string) error

	// Clear drops all fingerprints (full re-ingestion).
	Clear() error

	Close() error
}
