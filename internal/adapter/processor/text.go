package processor

import (
	"fmt"
	"os"

	"kbase/internal/domain"
)

// TextHandler extracts plain-text documents (.txt, .md) as a single body.
type TextHandler struct{}

func (TextHandler) Extract(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExtraction, err)
	}
	return []string{string(data)}, nil
}

func (TextHandler) Paged() bool { return false }
