package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"docchat/internal/config"
	"docchat/internal/models"

	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"
)

// Document is one indexed chunk.
type Document struct {
	bun.BaseModel `bun:"table:documents,alias:d"`
	ID            string          `bun:"id,pk"`
	Source        string          `bun:"source,notnull"`
	Page          int             `bun:"page,notnull"`
	Position      int             `bun:"position,notnull"`
	Content       string          `bun:"content,notnull"`
	Embedding     pgvector.Vector `bun:"embedding,notnull,type:vector"`
	Similarity    float32         `bun:"similarity,scanonly"`
	CreatedAt     time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

func newDocument(c models.Chunk) Document {
	return Document{
		ID:        c.ID(),
		Source:    c.Source,
		Page:      c.Page,
		Position:  c.Position,
		Content:   c.Content,
		Embedding: pgvector.NewVector(c.Embedding),
	}
}

func (d Document) retrieved() models.RetrievedChunk {
	return models.RetrievedChunk{
		Content: d.Content,
		Source:  d.Source,
		Page:    d.Page,
		Score:   d.Similarity,
	}
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

// ConnectDB opens the database with the configured driver: "pgdriver" or "postgres" (lib/pq).
func ConnectDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	switch cfg.Driver {
	case "", "pgdriver":
		return sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.URL))), nil
	case "postgres":
		return sql.Open("postgres", cfg.URL)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// InitDB enables pgvector and creates the documents table and its source index.
func InitDB(ctx context.Context, db *bun.DB) error {
	if _, err := db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to enable pgvector: %w", err)
	}
	if _, err := db.NewCreateTable().Model((*Document)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("failed to create documents table: %w", err)
	}
	_, err := db.NewCreateIndex().
		Model((*Document)(nil)).
		Index("documents_source_idx").
		IfNotExists().
		Column("source").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create source index: %w", err)
	}
	return nil
}

// PgVectorStore keeps chunks in PostgreSQL and ranks them by cosine distance.
type PgVectorStore struct {
	db *bun.DB
}

// NewPgVectorStore connects, pings and prepares the schema.
func NewPgVectorStore(ctx context.Context, cfg *config.DatabaseConfig) (*PgVectorStore, error) {
	sqldb, err := ConnectDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}
	db := NewDB(sqldb, cfg.Debug)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}
	if err := InitDB(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	log.Debug().Str("driver", cfg.Driver).Msg("Connected to pgvector store")
	return &PgVectorStore{db: db}, nil
}

// Add upserts chunks by ID.
func (s *PgVectorStore) Add(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	docs := make([]Document, 0, len(chunks))
	for _, c := range chunks {
		docs = append(docs, newDocument(c))
	}
	_, err := s.db.NewInsert().
		Model(&docs).
		On("CONFLICT (id) DO UPDATE").
		Set("source = EXCLUDED.source").
		Set("page = EXCLUDED.page").
		Set("position = EXCLUDED.position").
		Set("content = EXCLUDED.content").
		Set("embedding = EXCLUDED.embedding").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to store documents: %w", err)
	}
	return nil
}

// Query returns the k chunks closest to embedding, most similar first.
func (s *PgVectorStore) Query(ctx context.Context, embedding []float32, k int) ([]models.RetrievedChunk, error) {
	if k <= 0 {
		return nil, nil
	}
	vec := pgvector.NewVector(embedding)

	var docs []Document
	err := s.db.NewSelect().
		Model(&docs).
		Column("id", "source", "page", "position", "content").
		ColumnExpr("1 - (embedding <=> ?) AS similarity", vec).
		OrderExpr("embedding <=> ?", vec).
		Limit(k).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to search documents: %w", err)
	}

	chunks := make([]models.RetrievedChunk, 0, len(docs))
	for _, d := range docs {
		chunks = append(chunks, d.retrieved())
	}
	return chunks, nil
}

func (s *PgVectorStore) Count(ctx context.Context) (int, error) {
	n, err := s.db.NewSelect().Model((*Document)(nil)).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return n, nil
}

func (s *PgVectorStore) DeleteSource(ctx context.Context, source string) error {
	_, err := s.db.NewDelete().Model((*Document)(nil)).Where("source = ?", source).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete chunks of %s: %w", source, err)
	}
	return nil
}

// Reset truncates the documents table.
func (s *PgVectorStore) Reset(ctx context.Context) error {
	if _, err := s.db.NewTruncateTable().Model((*Document)(nil)).Exec(ctx); err != nil {
		return fmt.Errorf("failed to clear documents: %w", err)
	}
	return nil
}

func (s *PgVectorStore) Close() error {
	return s.db.Close()
}
