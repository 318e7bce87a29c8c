package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"pdf-chat/internal/chunker"
	"pdf-chat/internal/embedding"
	"pdf-chat/internal/helper"
	"pdf-chat/internal/metrics"
	"pdf-chat/internal/models"
	"pdf-chat/internal/parser"
)

type IndexReport struct {
	Loaded  []string `json:"loaded"`
	Skipped []string `json:"skipped"`
	Chars   int      `json:"chars"`
	Chunks  int      `json:"chunks"`
}

// Indexer runs load, split, embed and store for one batch of uploads.
type Indexer struct {
	embedder embeddings.Embedder
	splitter chunker.Splitter
	store    VectorStore
	replace  bool
}

func NewIndexer(embedder embeddings.Embedder, splitter chunker.Splitter, store VectorStore, replace bool) *Indexer {
	return &Indexer{embedder: embedder, splitter: splitter, store: store, replace: replace}
}

// Split loads and chunks uploads without touching the embedder, the store
// or the indexing counters.
func (ix *Indexer) Split(uploads []models.Upload) (IndexReport, []string, error) {
	var report IndexReport
	if len(uploads) == 0 {
		return report, nil, ErrNoDocuments
	}

	loaded := parser.LoadDocuments(uploads)
	report.Loaded = loaded.Loaded
	report.Skipped = loaded.Skipped
	report.Chars = len(loaded.Text)

	if strings.TrimSpace(loaded.Text) == "" {
		return report, nil, ErrNoText
	}

	chunks, err := ix.splitter.SplitText(loaded.Text)
	if err != nil {
		return report, nil, fmt.Errorf("failed to split text: %w", err)
	}
	report.Chunks = len(chunks)
	return report, chunks, nil
}

// Index embeds every chunk before writing anything, so a failed remote call
// leaves the store as it was.
func (ix *Indexer) Index(ctx context.Context, uploads []models.Upload) (IndexReport, error) {
	report, chunks, err := ix.Split(uploads)
	if err != nil {
		return report, err
	}

	source := strings.Join(report.Loaded, ",")
	chunkEmbeddings, err := embedding.GenerateEmbedding(ctx, ix.embedder, source, chunks)
	if err != nil {
		return report, err
	}
	for i := range chunkEmbeddings {
		id, err := helper.GenerateUUID()
		if err != nil {
			return report, err
		}
		chunkEmbeddings[i].ID = id
	}

	log.Info().Int("chunks", len(chunkEmbeddings)).Bool("replace", ix.replace).Msg("Adding chunks to vector database")
	if err := ix.store.Upsert(ctx, chunkEmbeddings, ix.replace); err != nil {
		return report, fmt.Errorf("failed to store chunks: %w", err)
	}
	metrics.DocumentsIndexedTotal.WithLabelValues("loaded").Add(float64(len(report.Loaded)))
	metrics.DocumentsIndexedTotal.WithLabelValues("skipped").Add(float64(len(report.Skipped)))
	metrics.ChunksIndexedTotal.Add(float64(len(chunkEmbeddings)))
	return report, nil
}
