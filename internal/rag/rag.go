package rag

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/prompts"

	"pdf-chat/internal/embedding"
	"pdf-chat/internal/llmservice"
	"pdf-chat/internal/metrics"
	"pdf-chat/internal/models"
)

var (
	ErrEmptyQuestion = errors.New("question must not be empty")
	ErrNoDocuments   = errors.New("no documents uploaded")
	ErrNoText        = errors.New("no text could be extracted from the uploaded documents")
)

var thinkTagRe = regexp.MustCompile(models.ThinkTag)

// VectorStore is the persisted chunk index.
type VectorStore interface {
	Upsert(ctx context.Context, chunks []models.ChunkEmbedding, replace bool) error
	Search(ctx context.Context, vector []float32, k int) ([]models.SearchResult, error)
	Count(ctx context.Context) (int, error)
}

// Answerer produces an answer to question using only contextChunks.
type Answerer interface {
	Answer(ctx context.Context, question string, contextChunks []string) (string, error)
}

// Retriever embeds a question and returns its nearest chunks. There is no
// relevance threshold.
type Retriever struct {
	embedder embeddings.Embedder
	store    VectorStore
	topK     int
}

func NewRetriever(embedder embeddings.Embedder, store VectorStore, topK int) *Retriever {
	return &Retriever{embedder: embedder, store: store, topK: topK}
}

func (r *Retriever) Retrieve(ctx context.Context, question string) ([]models.SearchResult, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}

	queryEmbedding, err := embedding.EmbedQuery(ctx, r.embedder, question)
	if err != nil {
		return nil, err
	}

	docs, err := r.store.Search(ctx, queryEmbedding, r.topK)
	if err != nil {
		return nil, err
	}
	log.Debug().Int("results", len(docs)).Msg("Retrieved chunks")
	return docs, nil
}

// LLMAnswerer fills the question-answering prompt and sends it to a chat model.
type LLMAnswerer struct {
	llm         llms.Model
	temperature float64
	prompt      prompts.PromptTemplate
}

func NewLLMAnswerer(llm llms.Model, temperature float64) *LLMAnswerer {
	return &LLMAnswerer{
		llm:         llm,
		temperature: temperature,
		prompt:      prompts.NewPromptTemplate(models.QAPromptTemplate, []string{"context", "question"}),
	}
}

func (a *LLMAnswerer) Answer(ctx context.Context, question string, contextChunks []string) (string, error) {
	prompt, err := a.prompt.Format(map[string]any{
		"context":  strings.Join(contextChunks, "\n\n"),
		"question": question,
	})
	if err != nil {
		return "", fmt.Errorf("failed to format prompt: %w", err)
	}

	msgContent := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}
	res, err := llmservice.GenerateContent(ctx, a.llm, a.temperature, msgContent)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(thinkTagRe.ReplaceAllString(res, "")), nil
}

type RAG struct {
	retriever *Retriever
	answerer  Answerer
}

func NewRAG(retriever *Retriever, answerer Answerer) *RAG {
	return &RAG{retriever: retriever, answerer: answerer}
}

// Query retrieves context for query and asks the model. When nothing is
// indexed the fallback answer is returned without calling the model.
func (r *RAG) Query(ctx context.Context, query string) (models.PromptResponse, error) {
	response := models.PromptResponse{Query: query}

	docs, err := r.retriever.Retrieve(ctx, query)
	if err != nil {
		metrics.QuestionsTotal.WithLabelValues("error").Inc()
		return response, err
	}
	response.Chunks = docs

	if len(docs) == 0 {
		log.Info().Msg("No indexed documents, answering with fallback")
		metrics.QuestionsTotal.WithLabelValues("no_context").Inc()
		response.Content = models.FallbackAnswer
		return response, nil
	}

	contextChunks := make([]string, len(docs))
	for i, doc := range docs {
		contextChunks[i] = doc.Content
	}
	response.Source = strings.Join(contextChunks, models.ContextSeparator)

	answer, err := r.answerer.Answer(ctx, query, contextChunks)
	if err != nil {
		metrics.QuestionsTotal.WithLabelValues("error").Inc()
		return response, err
	}
	metrics.QuestionsTotal.WithLabelValues("answered").Inc()
	response.Content = answer
	return response, nil
}
