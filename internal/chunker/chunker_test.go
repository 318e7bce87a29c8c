package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"pdf-chat/internal/config"
)

func TestFixed_OverlapAndCount(t *testing.T) {
	tests := []struct {
		length, size, overlap int
	}{
		{1, 10, 2},
		{10, 10, 2},
		{11, 10, 2},
		{17, 10, 2},
		{18, 10, 2},
		{20, 10, 2},
		{100, 7, 3},
		{1000, 100, 0},
		{25, 5, 4},
	}
	for _, tt := range tests {
		text := strings.Repeat("abcdefghij", tt.length/10+1)[:tt.length]
		chunks, err := Fixed{Size: tt.size, Overlap: tt.overlap}.SplitText(text)
		if err != nil {
			t.Fatalf("SplitText: %v", err)
		}

		want := 1
		if tt.length > tt.size {
			step := tt.size - tt.overlap
			want = (tt.length - tt.overlap + step - 1) / step
		}
		if len(chunks) != want {
			t.Errorf("L=%d S=%d O=%d: got %d chunks, expected %d", tt.length, tt.size, tt.overlap, len(chunks), want)
		}

		for i, c := range chunks {
			if utf8.RuneCountInString(c) > tt.size {
				t.Errorf("chunk %d longer than %d: %q", i, tt.size, c)
			}
			if i == 0 {
				continue
			}
			prev := chunks[i-1]
			if !strings.HasPrefix(c, prev[len(prev)-tt.overlap:]) {
				t.Errorf("chunk %d does not start with the last %d chars of chunk %d", i, tt.overlap, i-1)
			}
		}
		if !strings.HasSuffix(text, chunks[len(chunks)-1]) {
			t.Errorf("last chunk does not end the text")
		}
	}
}

func TestFixed_Runes(t *testing.T) {
	chunks, err := Fixed{Size: 3, Overlap: 1}.SplitText("héllo wörld")
	if err != nil {
		t.Fatalf("SplitText: %v", err)
	}
	for _, c := range chunks {
		if !utf8.ValidString(c) {
			t.Errorf("invalid utf8 chunk %q", c)
		}
	}
	if chunks[0] != "hél" || chunks[1] != "llo" {
		t.Errorf("chunks = %q", chunks)
	}
}

func TestFixed_EmptyText(t *testing.T) {
	chunks, err := Fixed{Size: 10, Overlap: 2}.SplitText("")
	if err != nil {
		t.Fatalf("SplitText: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected no chunks, got %q", chunks)
	}
}

// overlapsPrevious reports whether next begins with a non-empty suffix of
// prev that starts on a word boundary.
func overlapsPrevious(prev, next string) bool {
	for i := 1; i < len(prev); i++ {
		if prev[i-1] == ' ' && strings.HasPrefix(next, prev[i:]) {
			return true
		}
	}
	return false
}

func TestNew_Recursive(t *testing.T) {
	s, err := New(config.RAGConfig{Splitter: "recursive", ChunkSize: 40, ChunkOverlap: 15})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	text := strings.Repeat("alpha beta gamma delta epsilon zeta eta theta iota kappa ", 6)
	chunks, err := s.SplitText(text)
	if err != nil {
		t.Fatalf("SplitText: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if n := utf8.RuneCountInString(c); n > 40 {
			t.Errorf("chunk %d exceeds size: %d runes", i, n)
		}
		if i > 0 && !overlapsPrevious(chunks[i-1], c) {
			t.Errorf("chunk %d %q does not overlap chunk %d %q", i, c, i-1, chunks[i-1])
		}
	}
}

func TestNew_RecursiveDefaultsToParagraphs(t *testing.T) {
	s, err := New(config.RAGConfig{ChunkSize: 40, ChunkOverlap: 10})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	chunks, err := s.SplitText(strings.Repeat("The sky is blue and the grass is green.\n\n", 10))
	if err != nil {
		t.Fatalf("SplitText: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if n := utf8.RuneCountInString(c); n > 40 {
			t.Errorf("chunk %d exceeds size: %d runes", i, n)
		}
	}
}

func TestNew_Invalid(t *testing.T) {
	tests := []config.RAGConfig{
		{Splitter: "fixed", ChunkSize: 0},
		{Splitter: "fixed", ChunkSize: 10, ChunkOverlap: 10},
		{Splitter: "semantic", ChunkSize: 10, ChunkOverlap: 1},
	}
	for _, cfg := range tests {
		if _, err := New(cfg); err == nil {
			t.Errorf("New(%+v): expected error", cfg)
		}
	}
}
