package models

import (
	"fmt"
	"strings"
)

// Page is the text extracted from one page, slide or sheet of a document.
type Page struct {
	Number  int
	Content string
}

// Chunk represents a parsed chunk with metadata
type Chunk struct {
	Source    string
	Page      int
	Position  int
	Content   string
	Embedding []float32
}

// ID derives the chunk identity from its document and position.
func (c Chunk) ID() string {
	return fmt.Sprintf("%s#%d", c.Source, c.Position)
}

// RetrievedChunk is a chunk returned by a similarity query, most similar first.
type RetrievedChunk struct {
	Content string  `json:"content"`
	Source  string  `json:"source"`
	Page    int     `json:"page"`
	Score   float32 `json:"score"`
}

// ChatMessage is one element of caller supplied chat history. Either Role/Content or
// Question/Answer is set.
type ChatMessage struct {
	Role     string   `json:"role,omitempty"`
	Content  string   `json:"content,omitempty"`
	Question string   `json:"question,omitempty"`
	Answer   string   `json:"answer,omitempty"`
	Sources  []string `json:"sources,omitempty"`
}

// NormalizedRole maps the role aliases used by chat frontends onto human, ai or system.
func (m ChatMessage) NormalizedRole() string {
	switch strings.ToLower(strings.TrimSpace(m.Role)) {
	case "ai", "assistant", "bot":
		return RoleAI
	case "system":
		return RoleSystem
	default:
		return RoleHuman
	}
}

type PromptResponse struct {
	Query   string
	Sources []string
	Content string
	Chunks  []RetrievedChunk
}

// DocumentInfo describes an uploaded file.
type DocumentInfo struct {
	Name    string `json:"name"`
	RelPath string `json:"rel_path"`
	Size    int64  `json:"size"`
	Path    string `json:"path"`
}

// Status summarizes the index.
type Status struct {
	Status        string `json:"status"`
	DocumentCount int    `json:"document_count"`
	ChunkCount    int    `json:"chunk_count"`
	FileCount     int    `json:"file_count"`
	Message       string `json:"message"`
}
