package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"docchat/internal/config"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

var (
	// ErrEmbeddingFailed wraps provider failures (auth, rate limit, timeout, bad response).
	ErrEmbeddingFailed = errors.New("failed to generate embeddings")
	// ErrFastEmbedUnavailable is returned when the binary was built without cgo.
	ErrFastEmbedUnavailable = errors.New("fastembed: not available (binary built without cgo support, use the ollama or openai provider)")
)

// Embedder converts chunk texts and questions into vectors.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Provider is an Embedder holding resources that must be released.
type Provider interface {
	Embedder
	Close() error
}

// NewEmbedder creates the embedder selected by cfg.Provider.
func NewEmbedder(cfg *config.EmbeddingConfig) (Provider, error) {
	log.Debug().Interface("config", map[string]string{
		"provider":        cfg.Provider,
		"base_url":        cfg.BaseURL,
		"embedding_model": cfg.Model,
	}).Msg("Creating embedder")

	switch cfg.Provider {
	case "fastembed":
		p, err := NewFastEmbedProvider(cfg.Model, cfg.CacheDir)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "ollama":
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		llm, err := ollama.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama client: %w", err)
		}
		return newClientEmbedder(llm, cfg.BatchSize)
	case "openai":
		opts := []openai.Option{
			openai.WithEmbeddingModel(cfg.Model),
			openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create openai client: %w", err)
		}
		return newClientEmbedder(llm, cfg.BatchSize)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

// clientEmbedder adapts a langchaingo embedder and tags its errors.
type clientEmbedder struct {
	embedder *embeddings.EmbedderImpl
}

func newClientEmbedder(client embeddings.EmbedderClient, batchSize int) (*clientEmbedder, error) {
	embedder, err := embeddings.NewEmbedder(client, embeddings.WithBatchSize(batchSize))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return &clientEmbedder{embedder: embedder}, nil
}

func (e *clientEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	return vectors, nil
}

func (e *clientEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vector, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	return vector, nil
}

func (e *clientEmbedder) Close() error { return nil }

// EmbedInBatches embeds texts batchSize at a time; batchSize <= 0 sends them in one call.
func EmbedInBatches(ctx context.Context, e Embedder, texts []string, batchSize int) ([][]float32, error) {
	if batchSize <= 0 {
		batchSize = len(texts)
	}
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := min(start+batchSize, len(texts))
		batch, err := e.EmbedDocuments(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("%w: got %d vectors for %d texts", ErrEmbeddingFailed, len(batch), end-start)
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}
