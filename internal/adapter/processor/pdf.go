package processor

import (
	"bytes"
	"fmt"
	"os"

	"github.com/dslipak/pdf"

	"kbase/internal/domain"
)

// PDFHandler extracts PDF documents page by page. Each page is a separate
// section so page numbers survive into chunk metadata; pages that cannot be
// read yield an empty section to keep numbering stable.
type PDFHandler struct{}

func (PDFHandler) Extract(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExtraction, err)
	}

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExtraction, err)
	}

	numPages := r.NumPage()
	pages := make([]string, 0, numPages)

	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}

	return pages, nil
}

func (PDFHandler) Paged() bool { return true }
