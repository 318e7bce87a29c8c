package chunker

import (
	"fmt"

	"github.com/tmc/langchaingo/textsplitter"

	"pdf-chat/internal/config"
)

// Splitter turns one flat text into ordered, overlapping chunks.
type Splitter interface {
	SplitText(text string) ([]string, error)
}

// New returns the splitter selected by cfg.Splitter.
func New(cfg config.RAGConfig) (Splitter, error) {
	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", cfg.ChunkSize)
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", cfg.ChunkSize, cfg.ChunkOverlap)
	}

	switch cfg.Splitter {
	case "recursive", "":
		return textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(cfg.ChunkSize),
			textsplitter.WithChunkOverlap(cfg.ChunkOverlap),
		), nil
	case "token":
		return textsplitter.NewTokenSplitter(
			textsplitter.WithChunkSize(cfg.ChunkSize),
			textsplitter.WithChunkOverlap(cfg.ChunkOverlap),
		), nil
	case "fixed":
		return Fixed{Size: cfg.ChunkSize, Overlap: cfg.ChunkOverlap}, nil
	default:
		return nil, fmt.Errorf("unknown splitter: %s", cfg.Splitter)
	}
}

// Fixed cuts text into windows of Size runes, each starting Size-Overlap
// runes after the previous one. Consecutive chunks share exactly Overlap
// runes and the last chunk ends at the end of the text.
type Fixed struct {
	Size    int
	Overlap int
}

func (f Fixed) SplitText(text string) ([]string, error) {
	if f.Size <= 0 || f.Overlap < 0 || f.Overlap >= f.Size {
		return nil, fmt.Errorf("invalid fixed splitter: size %d, overlap %d", f.Size, f.Overlap)
	}
	runes := []rune(text)
	if len(runes) == 0 {
		return nil, nil
	}

	step := f.Size - f.Overlap
	var chunks []string
	for start := 0; ; start += step {
		end := min(start+f.Size, len(runes))
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks, nil
}
