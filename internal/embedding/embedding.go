package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"pdf-chat/internal/config"
	"pdf-chat/internal/metrics"
	"pdf-chat/internal/models"
)

var ErrMissingAPIKey = errors.New("embedding API key is not set")

// NewEmbedder builds the embedder described by cfg. For the openai and
// googleai providers a missing key fails here, before any request is made.
func NewEmbedder(ctx context.Context, cfg *config.LLMConfig) (embeddings.Embedder, error) {
	log.Debug().Str("provider", cfg.Provider).Str("base_url", cfg.BaseURL).Str("model", cfg.Model).Msg("Creating embedder")

	var client embeddings.EmbedderClient
	switch cfg.Provider {
	case "openai", "":
		if cfg.Key == "" {
			return nil, fmt.Errorf("%w (set %s)", ErrMissingAPIKey, cfg.KeyEnv)
		}
		llm, err := openai.New(
			openai.WithBaseURL(cfg.BaseURL),
			openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
			openai.WithEmbeddingModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize openai embedder: %w", err)
		}
		client = llm
	case "googleai":
		if cfg.Key == "" {
			return nil, fmt.Errorf("%w (set %s)", ErrMissingAPIKey, cfg.KeyEnv)
		}
		llm, err := googleai.New(ctx,
			googleai.WithAPIKey(cfg.Key),
			googleai.WithDefaultEmbeddingModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize googleai embedder: %w", err)
		}
		client = llm
	case "ollama":
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		llm, err := ollama.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize ollama embedder: %w", err)
		}
		client = llm
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}

	embedder, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return embedder, nil
}

// GenerateEmbedding embeds all chunks in one batch. Either every chunk gets a
// vector or an error is returned.
func GenerateEmbedding(ctx context.Context, embedder embeddings.Embedder, source string, chunks []string) ([]models.ChunkEmbedding, error) {
	if len(chunks) == 0 {
		log.Info().Msg("No chunks generated from content")
		return nil, nil
	}

	start := time.Now()
	vectors, err := embedder.EmbedDocuments(ctx, chunks)
	metrics.ObserveRemoteCall("embed_documents", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to embed %d chunks: %w", len(chunks), err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	chunkEmbeddings := make([]models.ChunkEmbedding, len(chunks))
	for i, chunk := range chunks {
		chunkEmbeddings[i] = models.ChunkEmbedding{
			Content:   chunk,
			Embedding: vectors[i],
			Source:    source,
			ChunkID:   i + 1,
		}
	}
	return chunkEmbeddings, nil
}

// EmbedQuery embeds a single question.
func EmbedQuery(ctx context.Context, embedder embeddings.Embedder, query string) ([]float32, error) {
	start := time.Now()
	vector, err := embedder.EmbedQuery(ctx, query)
	metrics.ObserveRemoteCall("embed_query", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return vector, nil
}
