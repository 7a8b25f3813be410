package chromemdb

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"

	"docchat/internal/config"
	"docchat/internal/models"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
)

var errNoEmbedding = errors.New("chunks must be embedded before they are stored")

// VectorDBManager stores chunks in one chromem-go collection.
type VectorDBManager struct {
	mu            sync.RWMutex
	db            *chromem.DB
	collection    *chromem.Collection
	name          string
	compress      bool
	encryptionKey string
	filePath      string
}

// NewVectorDBManager opens (or creates) the persistent database at cfg.Path, or an in-memory one
// when cfg.InMemory is set, and gets or creates the configured collection.
func NewVectorDBManager(cfg *config.VectorStoreConfig) (*VectorDBManager, error) {
	var db *chromem.DB
	if cfg.InMemory {
		db = chromem.NewDB()
	} else {
		var err error
		db, err = chromem.NewPersistentDB(cfg.Path, cfg.Compress)
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
	}

	filePath := cfg.ExportPath
	if filePath == "" {
		filePath = filepath.Join(cfg.Path, cfg.Collection+".chromem")
	}

	m := &VectorDBManager{
		db:            db,
		name:          cfg.Collection,
		compress:      cfg.Compress,
		encryptionKey: cfg.EncryptionKey,
		filePath:      filePath,
	}
	if err := m.openCollection(); err != nil {
		return nil, err
	}
	log.Debug().Str("collection", m.name).Int("count", m.collection.Count()).Msg("Opened chromem collection")
	return m, nil
}

func (m *VectorDBManager) openCollection() error {
	c, err := m.db.GetOrCreateCollection(m.name, nil, refuseEmbedding)
	if err != nil {
		return fmt.Errorf("failed to create/get collection: %w", err)
	}
	m.collection = c
	return nil
}

// refuseEmbedding keeps chromem from calling its default remote embedding API.
func refuseEmbedding(context.Context, string) ([]float32, error) {
	return nil, errNoEmbedding
}

// Add stores embedded chunks. Chunks with an existing ID are overwritten.
func (m *VectorDBManager) Add(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	docs := make([]chromem.Document, 0, len(chunks))
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			return fmt.Errorf("chunk %s: %w", c.ID(), errNoEmbedding)
		}
		docs = append(docs, chromem.Document{
			ID:      c.ID(),
			Content: c.Content,
			Metadata: map[string]string{
				models.MetaSource:   c.Source,
				models.MetaPage:     strconv.Itoa(c.Page),
				models.MetaPosition: strconv.Itoa(c.Position),
			},
			Embedding: c.Embedding,
		})
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}
	return nil
}

// Query returns up to k chunks most similar to embedding, most similar first.
func (m *VectorDBManager) Query(ctx context.Context, embedding []float32, k int) ([]models.RetrievedChunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	k = min(k, m.collection.Count())
	if k <= 0 {
		return nil, nil
	}
	results, err := m.collection.QueryEmbedding(ctx, embedding, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}

	chunks := make([]models.RetrievedChunk, 0, len(results))
	for _, r := range results {
		page, _ := strconv.Atoi(r.Metadata[models.MetaPage])
		chunks = append(chunks, models.RetrievedChunk{
			Content: r.Content,
			Source:  r.Metadata[models.MetaSource],
			Page:    page,
			Score:   r.Similarity,
		})
	}
	return chunks, nil
}

func (m *VectorDBManager) Count(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collection.Count(), nil
}

// DeleteSource removes every chunk of the named document.
func (m *VectorDBManager) DeleteSource(ctx context.Context, source string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.collection.Delete(ctx, map[string]string{models.MetaSource: source}, nil); err != nil {
		return fmt.Errorf("failed to delete chunks of %s: %w", source, err)
	}
	return nil
}

// Reset drops the collection and starts an empty one.
func (m *VectorDBManager) Reset(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.db.DeleteCollection(m.name); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	return m.openCollection()
}

// Export writes the collection to the export file, encrypted when a key is configured.
func (m *VectorDBManager) Export(context.Context) (string, error) {
	if err := m.checkKey(); err != nil {
		return "", err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	log.Debug().Str("collection", m.name).Str("file", m.filePath).Bool("compress", m.compress).Msg("Exporting collection")
	if err := m.db.ExportToFile(m.filePath, m.compress, m.encryptionKey, m.name); err != nil {
		return "", fmt.Errorf("failed to export database: %w", err)
	}
	return m.filePath, nil
}

// Import replaces the collection with the one stored in the export file.
func (m *VectorDBManager) Import(context.Context) error {
	if err := m.checkKey(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	log.Debug().Str("collection", m.name).Str("file", m.filePath).Msg("Importing collection")
	if err := m.db.ImportFromFile(m.filePath, m.encryptionKey, m.name); err != nil {
		return fmt.Errorf("failed to import database: %w", err)
	}
	return m.openCollection()
}

func (m *VectorDBManager) checkKey() error {
	if m.encryptionKey != "" && len(m.encryptionKey) != 32 {
		return fmt.Errorf("encryption key must be 32 bytes long, got %d", len(m.encryptionKey))
	}
	return nil
}

// Close is a no-op; the persistent database writes every change immediately.
func (m *VectorDBManager) Close() error { return nil }
