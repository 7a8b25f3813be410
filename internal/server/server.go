package server

import (
	"context"
	"io"
	"net/http"

	"docchat/internal/config"
	"docchat/internal/models"
	"docchat/internal/telemetry"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Version is reported by GET /.
var Version = "1.0.0"

// ChatService answers questions and reports index status.
type ChatService interface {
	Chat(ctx context.Context, question string, history []models.ChatMessage) (*models.PromptResponse, error)
	Status(ctx context.Context) (*models.Status, error)
}

// DocumentIndexer mutates the document set and the index together.
type DocumentIndexer interface {
	AddDocument(ctx context.Context, name string, r io.Reader) (int, error)
	RemoveDocument(ctx context.Context, name string) error
	Sync(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}

// DocumentLister lists the uploaded documents.
type DocumentLister interface {
	List() ([]models.DocumentInfo, error)
}

type Server struct {
	cfg     *config.Config
	chat    ChatService
	indexer DocumentIndexer
	library DocumentLister
	router  *gin.Engine
}

func New(cfg *config.Config, chat ChatService, indexer DocumentIndexer, library DocumentLister) *Server {
	gin.SetMode(cfg.Server.GinMode)

	s := &Server{cfg: cfg, chat: chat, indexer: indexer, library: library}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = s.cfg.Upload.MaxBytes
	r.Use(
		gin.Recovery(),
		RequestIDMiddleware(),
		otelgin.Middleware(s.cfg.Telemetry.ServiceName),
		AccessLogMiddleware(),
		MetricsMiddleware(telemetry.NewMetrics()),
		CORSMiddlewareWithOrigins(s.cfg.Server.CORSOrigins),
	)

	r.GET("/", s.handleRoot)
	r.GET("/status", s.handleStatus)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/upload", s.handleUpload)
	r.POST("/sync", s.handleSync)

	chat := []gin.HandlerFunc{}
	if s.cfg.Server.ChatRateLimit > 0 {
		chat = append(chat, RateLimitMiddleware(s.cfg.Server.ChatRateLimit, s.cfg.Server.ChatBurst))
	}
	r.POST("/chat", append(chat, s.handleChat)...)

	r.GET("/documents", s.handleListDocuments)
	r.DELETE("/documents/*filename", s.handleDeleteDocument)
	r.DELETE("/vectorstore", s.handleClearVectorStore)

	r.NoRoute(func(c *gin.Context) {
		RespondWithError(c, http.StatusNotFound, "not_found", "Route not found", nil)
	})
	return r
}
