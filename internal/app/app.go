package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"pdf-chat/internal/chromemdb"
	"pdf-chat/internal/chunker"
	"pdf-chat/internal/config"
	"pdf-chat/internal/db"
	"pdf-chat/internal/embedding"
	"pdf-chat/internal/llmservice"
	"pdf-chat/internal/rag"
)

type Store interface {
	rag.VectorStore
	Close() error
}

// App holds the wired indexing and question-answering pipelines.
type App struct {
	Indexer *rag.Indexer
	RAG     *rag.RAG
	Store   Store
}

// Build wires the remote clients first and opens the store last, so a
// missing credential fails before anything is created on disk.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	embedder, err := embedding.NewEmbedder(ctx, &cfg.EmbedLLM)
	if err != nil {
		return nil, err
	}
	llm, err := llmservice.NewLLM(ctx, &cfg.InferenceLLM)
	if err != nil {
		return nil, err
	}
	splitter, err := chunker.New(cfg.RAG)
	if err != nil {
		return nil, err
	}

	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("backend", cfg.RAG.Backend).
		Str("embedding_model", cfg.EmbedLLM.Model).
		Str("inference_model", cfg.InferenceLLM.Model).
		Str("index_mode", cfg.RAG.IndexMode).
		Msg("Pipeline ready")

	return &App{
		Indexer: rag.NewIndexer(embedder, splitter, store, cfg.RAG.IndexMode == "replace"),
		RAG: rag.NewRAG(
			rag.NewRetriever(embedder, store, cfg.RAG.TopK),
			rag.NewLLMAnswerer(llm, cfg.InferenceLLM.GetTemperature()),
		),
		Store: store,
	}, nil
}

// OpenStore opens the configured vector store backend.
func OpenStore(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.RAG.Backend {
	case "chromem", "":
		store, err := chromemdb.NewVectorDBManager(cfg.RAG.DBPath, cfg.RAG.Collection, false, cfg.RAG.Compress, cfg.RAG.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("failed to open vector store: %w", err)
		}
		return store, nil
	case "postgres":
		return db.Open(ctx, &cfg.Database)
	default:
		return nil, fmt.Errorf("unknown vector store backend: %s", cfg.RAG.Backend)
	}
}

func (a *App) Close() error {
	return a.Store.Close()
}
