package server

import (
	"fmt"
	"net/http"
	"path/filepath"
	"slices"
	"strings"

	"docchat/internal/models"
	"docchat/internal/parser"

	"github.com/gin-gonic/gin"
)

type chatRequest struct {
	Question    string               `json:"question"`
	ChatHistory []models.ChatMessage `json:"chat_history"`
}

type chatResponse struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

type uploadResponse struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Files   []string `json:"files"`
	Chunks  int      `json:"chunks"`
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"message": "RAG Chatbot API is running",
		"version": Version,
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	status, err := s.chat.Status(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) handleUpload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		RespondWithBadRequest(c, "Invalid multipart form", err.Error())
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		RespondWithBadRequest(c, "No files provided", nil)
		return
	}

	// reject the whole request before anything is written
	for _, fh := range files {
		name := filepath.Base(fh.Filename)
		if !s.allowed(name) {
			RespondWithError(c, http.StatusBadRequest, "unsupported_file_type",
				fmt.Sprintf("File type not allowed: %s", name),
				gin.H{"allowed_extensions": s.cfg.Upload.AllowedExtensions})
			return
		}
		if fh.Size > s.cfg.Upload.MaxBytes {
			RespondWithError(c, http.StatusRequestEntityTooLarge, "file_too_large",
				fmt.Sprintf("File exceeds %d bytes: %s", s.cfg.Upload.MaxBytes, name), nil)
			return
		}
	}

	resp := uploadResponse{Status: "success", Files: make([]string, 0, len(files))}
	for _, fh := range files {
		name := filepath.Base(fh.Filename)
		f, err := fh.Open()
		if err != nil {
			respondError(c, err)
			return
		}
		n, err := s.indexer.AddDocument(c.Request.Context(), name, f)
		f.Close()
		if err != nil {
			// earlier files stay indexed
			respondErrorWithDetails(c, err, gin.H{
				"failed_file":    name,
				"indexed_files":  resp.Files,
				"indexed_chunks": resp.Chunks,
			})
			return
		}
		resp.Files = append(resp.Files, name)
		resp.Chunks += n
	}
	resp.Message = fmt.Sprintf("Successfully processed %d file(s)", len(resp.Files))
	c.JSON(http.StatusOK, resp)
}

func (s *Server) allowed(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return slices.Contains(s.cfg.Upload.AllowedExtensions, ext) && parser.IsSupported(name)
}

func (s *Server) handleSync(c *gin.Context) {
	chunks, err := s.indexer.Sync(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Documents synced",
		"chunks":  chunks,
	})
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithBadRequest(c, "Invalid request body", err.Error())
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		RespondWithBadRequest(c, "Question is required", nil)
		return
	}

	resp, err := s.chat.Chat(c.Request.Context(), question, req.ChatHistory)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, chatResponse{Answer: resp.Content, Sources: resp.Sources})
}

func (s *Server) handleListDocuments(c *gin.Context) {
	docs, err := s.library.List()
	if err != nil {
		respondError(c, err)
		return
	}
	if docs == nil {
		docs = []models.DocumentInfo{}
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs, "count": len(docs)})
}

func (s *Server) handleDeleteDocument(c *gin.Context) {
	name := strings.TrimPrefix(c.Param("filename"), "/")
	if err := s.indexer.RemoveDocument(c.Request.Context(), name); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": fmt.Sprintf("Deleted %s", name),
	})
}

func (s *Server) handleClearVectorStore(c *gin.Context) {
	if err := s.indexer.Clear(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Vector store and documents cleared",
	})
}
