package processor

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"kbase/internal/domain"
)

// Handler extracts the text sections of one document kind. Paged formats
// return one section per page, in page order; others return a single section.
type Handler interface {
	Extract(path string) ([]string, error)
	Paged() bool
}

// Registry dispatches files to a registered handler by extension and splits
// the extracted text into chunks. Implements port.Processor.
type Registry struct {
	handlers map[string]Handler
	splitter *Splitter
}

// NewRegistry creates a registry with the built-in handlers for plain text
// (.txt, .md) and PDF documents.
func NewRegistry(splitter *Splitter) *Registry {
	r := &Registry{
		handlers: make(map[string]Handler),
		splitter: splitter,
	}
	r.Register(".txt", TextHandler{})
	r.Register(".md", TextHandler{})
	r.Register(".pdf", PDFHandler{})
	return r
}

// Register adds or replaces the handler for a file extension.
func (r *Registry) Register(ext string, h Handler) {
	r.handlers[strings.ToLower(ext)] = h
}

// Process extracts and chunks a document. Chunks carry the source path, the
// 1-based page for paged formats, the 0-based split index within their
// section, and descriptive metadata.
func (r *Registry) Process(path string) ([]domain.Chunk, error) {
	ext := strings.ToLower(filepath.Ext(path))
	h, ok := r.handlers[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q (%s)", domain.ErrUnsupportedFormat, ext, path)
	}

	sections, err := h.Extract(path)
	if err != nil {
		return nil, err
	}

	fileName := filepath.Base(path)
	fileType := strings.TrimPrefix(ext, ".")

	var chunks []domain.Chunk
	for i, section := range sections {
		page := 0
		if h.Paged() {
			page = i + 1
		}

		for j, text := range r.splitter.Split(section) {
			metadata := map[string]string{
				"source_file": fileName,
				"file_type":   fileType,
			}
			if page > 0 {
				metadata["page_number"] = strconv.Itoa(page)
			}

			chunks = append(chunks, domain.Chunk{
				SourcePath: path,
				Page:       page,
				Index:      j,
				Text:       text,
				Metadata:   metadata,
			})
		}
	}

	return chunks, nil
}
