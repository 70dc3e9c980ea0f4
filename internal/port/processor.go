package port

import "kbase/internal/domain"

// Processor extracts text from a document and splits it into chunks.
type Processor interface {
	// Process reads the file, extracts its text and returns the chunks in
	// document order. Returns domain.ErrUnsupportedFormat for unrecognized
	// file types and domain.ErrExtraction when parsing fails.
	Process(path string) ([]domain.Chunk, error)
}
