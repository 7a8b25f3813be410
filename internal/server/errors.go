package server

import (
	"errors"
	"net/http"

	"docchat/internal/documents"
	"docchat/internal/embedding"
	"docchat/internal/parser"
	"docchat/internal/rag"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	ErrorCode string      `json:"error_code"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}

// RespondWithError sends a standardized error response
func RespondWithError(c *gin.Context, statusCode int, errorCode, message string, details interface{}) {
	c.AbortWithStatusJSON(statusCode, ErrorResponse{
		ErrorCode: errorCode,
		Message:   message,
		Details:   details,
	})
}

// RespondWithBadRequest sends a 400 Bad Request error
func RespondWithBadRequest(c *gin.Context, message string, details interface{}) {
	RespondWithError(c, http.StatusBadRequest, "bad_request", message, details)
}

// respondError maps a service error onto its status code and error code and logs it.
func respondError(c *gin.Context, err error) {
	respondErrorWithDetails(c, err, nil)
}

// respondErrorWithDetails is respondError with extra details; 5xx responses also carry the
// error text under "error".
func respondErrorWithDetails(c *gin.Context, err error, extra gin.H) {
	status, code, message := classify(err)
	event := log.Warn()
	if status >= http.StatusInternalServerError {
		event = log.Error()
	}
	event.Err(err).
		Str("request_id", GetRequestID(c)).
		Str("path", c.FullPath()).
		Int("status", status).
		Msg("Request failed")

	var details interface{}
	switch {
	case extra != nil:
		if status >= http.StatusInternalServerError {
			extra["error"] = err.Error()
		}
		details = extra
	case status >= http.StatusInternalServerError:
		details = err.Error()
	}
	RespondWithError(c, status, code, message, details)
}

func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, parser.ErrUnsupportedFormat):
		return http.StatusBadRequest, "unsupported_file_type", err.Error()
	case errors.Is(err, documents.ErrInvalidName):
		return http.StatusBadRequest, "bad_request", err.Error()
	case errors.Is(err, rag.ErrNoDocuments):
		return http.StatusBadRequest, "no_documents", rag.ErrNoDocuments.Error()
	case errors.Is(err, documents.ErrDocumentNotFound):
		return http.StatusNotFound, "not_found", err.Error()
	case errors.Is(err, embedding.ErrEmbeddingFailed), errors.Is(err, embedding.ErrFastEmbedUnavailable):
		return http.StatusServiceUnavailable, "embedding_unavailable", "Embedding service is unavailable"
	case errors.Is(err, rag.ErrLLMUnavailable):
		return http.StatusServiceUnavailable, "llm_unavailable", "Language model is unavailable"
	default:
		return http.StatusInternalServerError, "internal_error", "Internal server error"
	}
}
