package rag

import (
	"context"

	"docchat/internal/documents"
	"docchat/internal/models"
	"docchat/internal/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("docchat/rag")

// Service answers questions over the indexed documents.
type Service struct {
	retriever *Retriever
	composer  *Composer
	store     VectorStore
	library   *documents.Library
	k         int
	metrics   *telemetry.Metrics
}

func NewService(retriever *Retriever, composer *Composer, store VectorStore, library *documents.Library, k int) *Service {
	return &Service{
		retriever: retriever,
		composer:  composer,
		store:     store,
		library:   library,
		k:         k,
		metrics:   telemetry.NewMetrics(),
	}
}

// Chat retrieves context for question and asks the LLM. It fails with ErrNoDocuments when
// nothing has been indexed yet.
func (s *Service) Chat(ctx context.Context, question string, history []models.ChatMessage) (*models.PromptResponse, error) {
	ctx, span := tracer.Start(ctx, "rag.Chat")
	defer span.End()
	span.SetAttributes(attribute.Int("rag.history", len(history)), attribute.Int("rag.k", s.k))

	resp, err := s.chat(ctx, question, history)
	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.metrics.ChatRequestsTotal.WithLabelValues("error").Inc()
	case len(resp.Chunks) == 0:
		s.metrics.ChatRequestsTotal.WithLabelValues("no_context").Inc()
	default:
		span.SetAttributes(attribute.StringSlice("rag.sources", resp.Sources))
		s.metrics.ChatRequestsTotal.WithLabelValues("answered").Inc()
	}
	return resp, err
}

func (s *Service) chat(ctx context.Context, question string, history []models.ChatMessage) (*models.PromptResponse, error) {
	count, err := s.store.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrNoDocuments
	}

	chunks, err := s.retriever.Retrieve(ctx, question, s.k)
	if err != nil {
		return nil, err
	}
	return s.composer.Compose(ctx, question, chunks, history)
}

// Status reports whether the store holds any chunks.
func (s *Service) Status(ctx context.Context) (*models.Status, error) {
	count, err := s.store.Count(ctx)
	if err != nil {
		return nil, err
	}
	files, err := s.library.Files()
	if err != nil {
		return nil, err
	}

	status := &models.Status{
		Status:        models.StatusReady,
		DocumentCount: count,
		ChunkCount:    count,
		FileCount:     len(files),
		Message:       "Vector store is ready",
	}
	if count == 0 {
		status.Status = models.StatusNoDocuments
		status.Message = "No documents loaded"
	}
	return status, nil
}
