package processor

import "strings"

// Splitter splits text into fixed-size character windows. Consecutive
// windows share the configured overlap, so a window starts (size - overlap)
// characters after the previous one. Splitting is deterministic: the same
// text and configuration always produce the same boundaries.
type Splitter struct {
	size    int
	overlap int
}

func NewSplitter(size, overlap int) *Splitter {
	if size <= 0 {
		size = 500
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	return &Splitter{
		size:    size,
		overlap: overlap,
	}
}

// Split returns the window texts in source order. Sizes are measured in
// runes. Windows that contain only whitespace are dropped; text that is
// entirely whitespace yields no chunks.
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	if len(runes) <= s.size {
		return []string{text}
	}

	step := s.size - s.overlap
	var out []string

	for start := 0; start < len(runes); start += step {
		end := start + s.size
		if end > len(runes) {
			end = len(runes)
		}

		segment := string(runes[start:end])
		if strings.TrimSpace(segment) != "" {
			out = append(out, segment)
		}

		if end == len(runes) {
			break
		}
	}

	return out
}
