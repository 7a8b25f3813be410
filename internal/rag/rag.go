package rag

import (
	"context"
	"errors"
	"fmt"
	"time"

	"docchat/internal/embedding"
	"docchat/internal/models"
	"docchat/internal/telemetry"

	"github.com/tmc/langchaingo/llms"
)

var (
	// ErrNoDocuments is returned when a question is asked before anything was indexed.
	ErrNoDocuments = errors.New(models.NoContextAnswer)
	// ErrLLMUnavailable wraps chat model failures: network, auth, rate limit or timeout.
	ErrLLMUnavailable = errors.New("llm unavailable")
)

// VectorStore persists embedded chunks and answers nearest-neighbour queries.
type VectorStore interface {
	Add(ctx context.Context, chunks []models.Chunk) error
	Query(ctx context.Context, embedding []float32, k int) ([]models.RetrievedChunk, error)
	Count(ctx context.Context) (int, error)
	DeleteSource(ctx context.Context, source string) error
	Reset(ctx context.Context) error
	Close() error
}

// LLM generates the answer text for a list of chat messages.
type LLM interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent) (string, error)
}

// Retriever finds the chunks most similar to a question.
type Retriever struct {
	embedder embedding.Embedder
	store    VectorStore
	metrics  *telemetry.Metrics
}

func NewRetriever(embedder embedding.Embedder, store VectorStore) *Retriever {
	return &Retriever{embedder: embedder, store: store, metrics: telemetry.NewMetrics()}
}

// Retrieve returns up to k chunks, most similar first. An empty store yields no chunks.
func (r *Retriever) Retrieve(ctx context.Context, question string, k int) ([]models.RetrievedChunk, error) {
	start := time.Now()
	defer func() { r.metrics.RetrievalDuration.Observe(time.Since(start).Seconds()) }()

	count, err := r.store.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 || k <= 0 {
		return nil, nil
	}

	queryEmbedding, err := r.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, err
	}
	chunks, err := r.store.Query(ctx, queryEmbedding, min(k, count))
	if err != nil {
		return nil, fmt.Errorf("failed to search documents: %w", err)
	}
	return chunks, nil
}
