package processor

import (
	"strings"
	"testing"
)

func TestSplitterShortTextSingleChunk(t *testing.T) {
	s := NewSplitter(100, 10)

	chunks := s.Split("short text")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != "short text" {
		t.Errorf("expected original text, got %q", chunks[0])
	}
}

func TestSplitterWhitespaceOnly(t *testing.T) {
	s := NewSplitter(100, 10)

	if chunks := s.Split("   \n\t  "); chunks != nil {
		t.Errorf("expected no chunks for whitespace, got %d", len(chunks))
	}
	if chunks := s.Split(""); chunks != nil {
		t.Errorf("expected no chunks for empty text, got %d", len(chunks))
	}
}

func TestSplitterDeterministic(t *testing.T) {
	s := NewSplitter(50, 10)
	text := strings.Repeat("the quick brown fox jumps over the lazy dog. ", 20)

	first := s.Split(text)
	second := s.Split(text)

	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}

func TestSplitterWindowsAndOverlap(t *testing.T) {
	s := NewSplitter(200, 20)

	// 560 characters: windows [0,200) [180,380) [360,560).
	var b strings.Builder
	for b.Len() < 560 {
		b.WriteString("abcdefghij")
	}
	text := b.String()[:560]

	chunks := s.Split(text)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}

	for i, c := range chunks {
		if len(c) > 220 {
			t.Errorf("chunk %d length %d exceeds size+overlap", i, len(c))
		}
	}

	// Consecutive chunks share exactly the overlap region, and boundaries
	// match source positions.
	for i := 0; i < len(chunks)-1; i++ {
		tail := chunks[i][len(chunks[i])-20:]
		head := chunks[i+1][:20]
		if tail != head {
			t.Errorf("chunks %d/%d do not overlap by 20 chars: %q vs %q", i, i+1, tail, head)
		}
	}

	if chunks[0] != text[0:200] {
		t.Error("first chunk does not match source positions 0-200")
	}
	if chunks[1] != text[180:380] {
		t.Error("second chunk does not match source positions 180-380")
	}
	if chunks[2] != text[360:560] {
		t.Error("third chunk does not match source positions 360-560")
	}
}

func TestSplitterCoversWholeText(t *testing.T) {
	s := NewSplitter(40, 8)
	text := strings.Repeat("0123456789", 15)

	chunks := s.Split(text)
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}

	last := chunks[len(chunks)-1]
	if !strings.HasSuffix(text, last) {
		t.Error("last chunk does not end at the end of the text")
	}
}

func TestSplitterInvalidOverlapDisablesOverlap(t *testing.T) {
	s := NewSplitter(10, 10)
	text := strings.Repeat("x", 25)

	chunks := s.Split(text)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 non-overlapping chunks, got %d", len(chunks))
	}
	if chunks[0] != strings.Repeat("x", 10) || chunks[2] != strings.Repeat("x", 5) {
		t.Error("unexpected chunk boundaries with disabled overlap")
	}
}
