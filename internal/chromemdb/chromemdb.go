package chromemdb

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"pdf-chat/internal/models"
)

var errNoEmbeddingFunc = errors.New("embeddings must be computed before they reach the store")

// VectorDBManager encapsulates the chromem-go database operations for a
// single collection. Writes take the lock exclusively so a replacing
// re-index is never observed half done by a concurrent search.
type VectorDBManager struct {
	mu             sync.RWMutex
	db             *chromem.DB
	collection     *chromem.Collection
	collectionName string
	dbPath         string
	compress       bool
	encryptionKey  string
}

// NewVectorDBManager opens (or creates) the store. With inMemory set nothing
// is written to dbPath.
func NewVectorDBManager(dbPath, collectionName string, inMemory, compress bool, encryptionKey string) (*VectorDBManager, error) {
	var db *chromem.DB
	var err error
	if inMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(dbPath, compress)
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
	}

	m := &VectorDBManager{
		db:             db,
		collectionName: collectionName,
		dbPath:         dbPath,
		compress:       compress,
		encryptionKey:  encryptionKey,
	}
	if _, err := m.getOrCreateCollection(); err != nil {
		return nil, err
	}
	log.Debug().Str("path", dbPath).Str("collection", collectionName).Int("documents", m.collection.Count()).Msg("Opened vector store")
	return m, nil
}

func (m *VectorDBManager) getOrCreateCollection() (*chromem.Collection, error) {
	c, err := m.db.GetOrCreateCollection(m.collectionName, nil, refuseEmbedding)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %w", err)
	}
	m.collection = c
	return c, nil
}

func refuseEmbedding(context.Context, string) ([]float32, error) {
	return nil, errNoEmbeddingFunc
}

// Upsert adds chunks to the collection. With replace set the collection is
// dropped first, under the same lock.
func (m *VectorDBManager) Upsert(ctx context.Context, chunks []models.ChunkEmbedding, replace bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if replace {
		if err := m.db.DeleteCollection(m.collectionName); err != nil {
			return fmt.Errorf("failed to drop collection: %w", err)
		}
		if _, err := m.getOrCreateCollection(); err != nil {
			return err
		}
	}
	if len(chunks) == 0 {
		return nil
	}

	docs := make([]chromem.Document, len(chunks))
	for i, ce := range chunks {
		docs[i] = chromem.Document{
			ID:      ce.ID,
			Content: ce.Content,
			Metadata: map[string]string{
				"source":   ce.Source,
				"chunk_id": strconv.Itoa(ce.ChunkID),
			},
			Embedding: ce.Embedding,
		}
	}
	if err := m.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}
	return nil
}

// Search returns up to k nearest chunks. An empty collection yields no results.
func (m *VectorDBManager) Search(ctx context.Context, vector []float32, k int) ([]models.SearchResult, error) {
	if len(vector) == 0 {
		return nil, errors.New("query embedding must be provided")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	// chromem rejects nResults above the document count
	n := min(k, m.collection.Count())
	if n <= 0 {
		return nil, nil
	}

	results, err := m.collection.QueryEmbedding(ctx, vector, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}

	out := make([]models.SearchResult, len(results))
	for i, r := range results {
		out[i] = models.SearchResult{
			ID:         r.ID,
			Content:    r.Content,
			Source:     r.Metadata["source"],
			Similarity: r.Similarity,
		}
	}
	return out, nil
}

func (m *VectorDBManager) Count(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collection.Count(), nil
}

// Export writes the collection to filePath, encrypted when a key is configured.
func (m *VectorDBManager) Export(filePath string) error {
	if filePath == "" {
		return errors.New("file path is required")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	log.Debug().Str("collection", m.collectionName).Str("file", filePath).Bool("compress", m.compress).Bool("encrypted", m.encryptionKey != "").Msg("Exporting collection")
	if err := m.db.ExportToFile(filePath, m.compress, m.encryptionKey, m.collectionName); err != nil {
		return fmt.Errorf("failed to export database: %w", err)
	}
	return nil
}

// Import loads the collection from a file written by Export.
func (m *VectorDBManager) Import(filePath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.db.ImportFromFile(filePath, m.encryptionKey, m.collectionName); err != nil {
		return fmt.Errorf("failed to import database: %w", err)
	}
	c := m.db.GetCollection(m.collectionName, refuseEmbedding)
	if c == nil {
		if _, err := m.getOrCreateCollection(); err != nil {
			return err
		}
		return fmt.Errorf("collection %s not found in %s", m.collectionName, filePath)
	}
	m.collection = c
	return nil
}

func (m *VectorDBManager) Close() error {
	return nil
}
