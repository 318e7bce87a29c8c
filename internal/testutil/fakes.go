package testutil

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"
	"unicode"

	"github.com/tmc/langchaingo/llms"
)

const embedDims = 64

// Embedder is a deterministic bag-of-words embedder. Texts sharing words
// get similar vectors.
type Embedder struct {
	mu    sync.Mutex
	Calls int
	Err   error
}

func (e *Embedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Calls++
	if e.Err != nil {
		return nil, e.Err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = bagOfWords(text)
	}
	return out, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func bagOfWords(text string) []float32 {
	vec := make([]float32, embedDims+1)
	// keeps every vector non-zero
	vec[embedDims] = 0.1
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		h.Write([]byte(w))
		vec[h.Sum32()%embedDims]++
	}
	return vec
}

// LLM is a chat model that records prompts and replies with Reply, or with
// the result of ReplyFunc when set.
type LLM struct {
	mu        sync.Mutex
	Prompts   []string
	Reply     string
	ReplyFunc func(prompt string) string
	Err       error
}

func (l *LLM) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	var prompt strings.Builder
	for _, m := range messages {
		for _, part := range m.Parts {
			if text, ok := part.(llms.TextContent); ok {
				prompt.WriteString(text.Text)
			}
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.Prompts = append(l.Prompts, prompt.String())
	if l.Err != nil {
		return nil, l.Err
	}
	reply := l.Reply
	if l.ReplyFunc != nil {
		reply = l.ReplyFunc(prompt.String())
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: reply}}}, nil
}

func (l *LLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, l, prompt, options...)
}

func (l *LLM) PromptCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.Prompts)
}

var ErrRemote = errors.New("remote unavailable")
