package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"pdf-chat/internal/config"
	"pdf-chat/internal/models"
)

type Document struct {
	bun.BaseModel `bun:"table:documents,alias:d"`
	ID            string          `bun:"id,pk"`
	Content       string          `bun:"content,notnull"`
	Source        string          `bun:"source"`
	ChunkID       int             `bun:"chunk_id"`
	Embedding     pgvector.Vector `bun:"embedding,notnull,type:vector"`
	Similarity    float32         `bun:"similarity,scanonly"`
}

// ConnectDB opens a database handle with the configured driver, pgdriver or lib/pq.
func ConnectDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	switch cfg.Driver {
	case "pq":
		return sql.Open("postgres", cfg.DSN)
	case "pgdriver", "":
		return sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN))), nil
	default:
		return nil, fmt.Errorf("unknown database driver: %s", cfg.Driver)
	}
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

func InitDB(ctx context.Context, db *bun.DB) error {
	if _, err := db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to enable pgvector: %w", err)
	}
	_, err := db.NewCreateTable().Model((*Document)(nil)).IfNotExists().Exec(ctx)
	return err
}

func insertQuery(db bun.IDB, docs []Document) *bun.InsertQuery {
	return db.NewInsert().Model(&docs)
}

// SearchDocuments orders by cosine distance, nearest first.
func SearchDocuments(ctx context.Context, db bun.IDB, queryEmbedding []float32, limit int) ([]Document, error) {
	var docs []Document
	err := searchQuery(db, &docs, queryEmbedding, limit).Scan(ctx)
	return docs, err
}

func searchQuery(db bun.IDB, dest *[]Document, queryEmbedding []float32, limit int) *bun.SelectQuery {
	vec := pgvector.NewVector(queryEmbedding)
	return db.NewSelect().
		Model(dest).
		Column("id", "content", "source", "chunk_id").
		ColumnExpr("1 - (embedding <=> ?) AS similarity", vec).
		OrderExpr("embedding <=> ?", vec).
		Limit(limit)
}

func deleteQuery(db bun.IDB) *bun.DeleteQuery {
	return db.NewDelete().Model((*Document)(nil)).Where("TRUE")
}

// Store adapts the documents table to the vector store used by the RAG pipeline.
type Store struct {
	db *bun.DB
}

// Open connects, enables pgvector and creates the table if needed.
func Open(ctx context.Context, cfg *config.DatabaseConfig) (*Store, error) {
	sqldb, err := ConnectDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	db := NewDB(sqldb, cfg.Debug)
	if err := InitDB(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return &Store{db: db}, nil
}

type execQuery interface {
	Exec(ctx context.Context, dest ...interface{}) (sql.Result, error)
	String() string
}

// upsertQueries returns the statements Upsert runs, in order, inside one transaction.
func upsertQueries(db bun.IDB, chunks []models.ChunkEmbedding, replace bool) []execQuery {
	var queries []execQuery
	if replace {
		queries = append(queries, deleteQuery(db))
	}
	if len(chunks) == 0 {
		return queries
	}

	docs := make([]Document, len(chunks))
	for i, ce := range chunks {
		docs[i] = Document{
			ID:        ce.ID,
			Content:   ce.Content,
			Source:    ce.Source,
			ChunkID:   ce.ChunkID,
			Embedding: pgvector.NewVector(ce.Embedding),
		}
	}
	return append(queries, insertQuery(db, docs))
}

// Upsert writes chunks in one transaction, clearing the table first when replace is set.
func (s *Store) Upsert(ctx context.Context, chunks []models.ChunkEmbedding, replace bool) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, q := range upsertQueries(tx, chunks, replace) {
			if _, err := q.Exec(ctx); err != nil {
				return fmt.Errorf("failed to store documents: %w", err)
			}
		}
		return nil
	})
}

func (s *Store) Search(ctx context.Context, vector []float32, k int) ([]models.SearchResult, error) {
	if len(vector) == 0 {
		return nil, errors.New("query embedding must be provided")
	}
	docs, err := SearchDocuments(ctx, s.db, vector, k)
	if err != nil {
		return nil, fmt.Errorf("failed to search documents: %w", err)
	}
	out := make([]models.SearchResult, len(docs))
	for i, d := range docs {
		out[i] = models.SearchResult{ID: d.ID, Content: d.Content, Source: d.Source, Similarity: d.Similarity}
	}
	return out, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	return s.db.NewSelect().Model((*Document)(nil)).Count(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}
