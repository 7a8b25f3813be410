package rag

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"docchat/internal/models"
	"docchat/internal/telemetry"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
)

var thinkRe = regexp.MustCompile(models.ThinkTag)

// Composer turns retrieved chunks and chat history into a prompt and asks the LLM.
type Composer struct {
	llm          LLM
	systemPrompt string
	metrics      *telemetry.Metrics
}

func NewComposer(llm LLM) *Composer {
	return &Composer{llm: llm, systemPrompt: models.SystemPrompt, metrics: telemetry.NewMetrics()}
}

// Compose answers question from chunks. Without chunks the LLM is not called and the fixed
// no-context answer is returned.
func (c *Composer) Compose(ctx context.Context, question string, chunks []models.RetrievedChunk, history []models.ChatMessage) (*models.PromptResponse, error) {
	if len(chunks) == 0 {
		return &models.PromptResponse{Query: question, Content: models.NoContextAnswer, Sources: []string{}}, nil
	}

	messages := c.buildMessages(question, chunks, history)
	log.Debug().Int("messages", len(messages)).Int("chunks", len(chunks)).Msg("Generating answer")

	start := time.Now()
	content, err := c.llm.GenerateContent(ctx, messages)
	c.metrics.LLMRequestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLLMUnavailable, err)
	}

	return &models.PromptResponse{
		Query:   question,
		Sources: uniqueSources(chunks),
		Content: stripThinking(content),
		Chunks:  chunks,
	}, nil
}

func (c *Composer) buildMessages(question string, chunks []models.RetrievedChunk, history []models.ChatMessage) []llms.MessageContent {
	parts := make([]string, 0, len(chunks))
	for _, ch := range chunks {
		parts = append(parts, fmt.Sprintf(models.SourceLineTemplate, ch.Source, ch.Content))
	}
	knowledge := fmt.Sprintf(models.KnowledgeBaseTemplate, strings.Join(parts, models.ContextSeparator))

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, c.systemPrompt),
		llms.TextParts(llms.ChatMessageTypeSystem, knowledge),
	}
	messages = append(messages, historyMessages(history)...)
	return append(messages, llms.TextParts(llms.ChatMessageTypeHuman, question))
}

// historyMessages accepts both {role, content} turns and {question, answer} pairs.
func historyMessages(history []models.ChatMessage) []llms.MessageContent {
	var messages []llms.MessageContent
	for _, m := range history {
		if m.Question != "" || m.Answer != "" {
			if m.Question != "" {
				messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, m.Question))
			}
			if m.Answer != "" {
				messages = append(messages, llms.TextParts(llms.ChatMessageTypeAI, m.Answer))
			}
			continue
		}
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		role := llms.ChatMessageTypeHuman
		switch m.NormalizedRole() {
		case models.RoleAI:
			role = llms.ChatMessageTypeAI
		case models.RoleSystem:
			role = llms.ChatMessageTypeSystem
		}
		messages = append(messages, llms.TextParts(role, m.Content))
	}
	return messages
}

func stripThinking(content string) string {
	return strings.TrimSpace(thinkRe.ReplaceAllString(content, ""))
}

// uniqueSources keeps the first occurrence of every document base name.
func uniqueSources(chunks []models.RetrievedChunk) []string {
	seen := make(map[string]bool, len(chunks))
	sources := make([]string, 0, len(chunks))
	for _, ch := range chunks {
		if ch.Source == "" {
			continue
		}
		name := path.Base(ch.Source)
		if seen[name] {
			continue
		}
		seen[name] = true
		sources = append(sources, name)
	}
	return sources
}
