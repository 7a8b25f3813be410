package rag

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"docchat/internal/documents"
	"docchat/internal/embedding"
	"docchat/internal/models"
	"docchat/internal/parser"
	"docchat/internal/telemetry"

	"github.com/rs/zerolog/log"
)

// LoadFunc extracts the pages of a document.
type LoadFunc func(path string) ([]models.Page, error)

// Indexer owns the write path: load, chunk, embed and store.
// Mutations are serialized; queries against the store are not blocked.
type Indexer struct {
	mu        sync.Mutex
	library   *documents.Library
	store     VectorStore
	embedder  embedding.Embedder
	chunker   parser.Chunker
	load      LoadFunc
	batchSize int
	metrics   *telemetry.Metrics
}

type IndexerOption func(*Indexer)

// WithLoader replaces parser.ParseFile.
func WithLoader(load LoadFunc) IndexerOption {
	return func(ix *Indexer) { ix.load = load }
}

// WithBatchSize sets how many chunks are embedded per provider call.
func WithBatchSize(n int) IndexerOption {
	return func(ix *Indexer) { ix.batchSize = n }
}

func NewIndexer(library *documents.Library, store VectorStore, embedder embedding.Embedder, chunker parser.Chunker, opts ...IndexerOption) *Indexer {
	ix := &Indexer{
		library:  library,
		store:    store,
		embedder: embedder,
		chunker:  chunker,
		load:     parser.ParseFile,
		metrics:  telemetry.NewMetrics(),
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// AddDocument saves r under name and indexes it, replacing earlier chunks of the same name.
func (ix *Indexer) AddDocument(ctx context.Context, name string, r io.Reader) (int, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	path, err := ix.library.Save(name, r)
	if err != nil {
		return 0, err
	}
	n, err := ix.indexFile(ctx, path)
	ix.refreshGauge(ctx)
	return n, err
}

// IndexFile indexes a file on disk and returns the number of chunks stored. Files inside the
// library are keyed by their relative path, other files by their base name.
func (ix *Indexer) IndexFile(ctx context.Context, path string) (int, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	n, err := ix.indexFile(ctx, path)
	ix.refreshGauge(ctx)
	return n, err
}

func (ix *Indexer) indexFile(ctx context.Context, path string) (int, error) {
	source := ix.sourceName(path)
	n, err := ix.index(ctx, path, source)
	if err != nil {
		ix.metrics.DocumentsIndexedTotal.WithLabelValues("failed").Inc()
		return 0, err
	}
	ix.metrics.DocumentsIndexedTotal.WithLabelValues("success").Inc()
	ix.metrics.ChunksIndexedTotal.Add(float64(n))
	log.Info().Str("file", source).Int("chunks", n).Msg("Indexed document")
	return n, nil
}

func (ix *Indexer) sourceName(path string) string {
	if rel, ok := ix.library.Rel(path); ok {
		return rel
	}
	return filepath.Base(path)
}

func (ix *Indexer) index(ctx context.Context, path, source string) (int, error) {
	pages, err := ix.load(path)
	if err != nil {
		return 0, err
	}
	chunks, err := parser.ChunkPages(ix.chunker, source, pages)
	if err != nil {
		return 0, fmt.Errorf("failed to chunk %s: %w", source, err)
	}

	if len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Content
		}
		vectors, err := embedding.EmbedInBatches(ctx, ix.embedder, texts, ix.batchSize)
		if err != nil {
			return 0, err
		}
		for i := range chunks {
			chunks[i].Embedding = vectors[i]
		}
	}

	if err := ix.store.DeleteSource(ctx, source); err != nil {
		return 0, err
	}
	if err := ix.store.Add(ctx, chunks); err != nil {
		return 0, err
	}
	return len(chunks), nil
}

// RemoveDocument deletes the file at the library-relative path name and all of its chunks.
// Nothing is touched when the file does not exist.
func (ix *Indexer) RemoveDocument(ctx context.Context, name string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	defer ix.refreshGauge(ctx)

	path, err := ix.library.Lookup(name)
	if err != nil {
		return err
	}
	source := ix.sourceName(path)
	if err := ix.store.DeleteSource(ctx, source); err != nil {
		return err
	}
	if err := ix.library.Delete(source); err != nil {
		return err
	}
	log.Info().Str("file", source).Msg("Removed document")
	return nil
}

// Sync rebuilds the store from every supported file in the library. Files that fail are
// logged and skipped.
func (ix *Indexer) Sync(ctx context.Context) (int, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	defer ix.refreshGauge(ctx)

	files, err := ix.library.Files()
	if err != nil {
		return 0, err
	}
	if err := ix.store.Reset(ctx); err != nil {
		return 0, err
	}

	total := 0
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := ix.indexFile(ctx, path)
		if err != nil {
			log.Error().Err(err).Str("file", path).Msg("Error indexing document")
			continue
		}
		total += n
	}
	log.Info().Int("files", len(files)).Int("chunks", total).Msg("Synced documents")
	return total, nil
}

// Clear empties the store and deletes every uploaded file.
func (ix *Indexer) Clear(ctx context.Context) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	defer ix.refreshGauge(ctx)

	if err := ix.store.Reset(ctx); err != nil {
		return err
	}
	return ix.library.Clear()
}

func (ix *Indexer) refreshGauge(ctx context.Context) {
	if n, err := ix.store.Count(ctx); err == nil {
		ix.metrics.StoredChunks.Set(float64(n))
	}
}
