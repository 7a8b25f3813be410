package rag

import (
	"context"
	"errors"
	"testing"

	"docchat/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

func TestCompose_NoChunksSkipsLLM(t *testing.T) {
	llm := &echoLLM{}
	resp, err := NewComposer(llm).Compose(context.Background(), "What apps to pin?", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, models.NoContextAnswer, resp.Content)
	assert.Empty(t, resp.Sources)
	assert.Zero(t, llm.calls)
}

func TestCompose_MessagesAndSources(t *testing.T) {
	llm := &echoLLM{}
	chunks := []models.RetrievedChunk{
		{Content: "Pin Outlook", Source: "apps.pdf"},
		{Content: "Book flights", Source: "travel.docx"},
		{Content: "Pin Teams", Source: "apps.pdf"},
	}
	history := []models.ChatMessage{
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hi, how can I help?"},
		{Question: "earlier question", Answer: "earlier answer"},
	}

	resp, err := NewComposer(llm).Compose(context.Background(), "What apps to pin?", chunks, history)
	require.NoError(t, err)
	assert.Equal(t, []string{"apps.pdf", "travel.docx"}, resp.Sources)

	msgs := llm.messages
	require.Len(t, msgs, 7)
	assert.Equal(t, llms.ChatMessageTypeSystem, msgs[0].Role)
	assert.Equal(t, models.SystemPrompt, textOf(msgs[0]))
	assert.Equal(t, llms.ChatMessageTypeSystem, msgs[1].Role)
	assert.Equal(t,
		"Knowledge base:\n[source: apps.pdf]\nPin Outlook\n---\n[source: travel.docx]\nBook flights\n---\n[source: apps.pdf]\nPin Teams",
		textOf(msgs[1]))
	assert.Equal(t, llms.ChatMessageTypeHuman, msgs[2].Role)
	assert.Equal(t, llms.ChatMessageTypeAI, msgs[3].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, msgs[4].Role)
	assert.Equal(t, "earlier question", textOf(msgs[4]))
	assert.Equal(t, llms.ChatMessageTypeAI, msgs[5].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, msgs[6].Role)
	assert.Equal(t, "What apps to pin?", textOf(msgs[6]))
}

func TestCompose_WrapsLLMErrors(t *testing.T) {
	llm := &echoLLM{err: errors.New("context deadline exceeded")}
	_, err := NewComposer(llm).Compose(context.Background(), "q", []models.RetrievedChunk{{Content: "c", Source: "s"}}, nil)
	assert.ErrorIs(t, err, ErrLLMUnavailable)
}

func TestHistoryMessages(t *testing.T) {
	msgs := historyMessages([]models.ChatMessage{
		{Role: "human", Content: "q1"},
		{Role: "ai", Content: "a1"},
		{Role: "bot", Content: "a2"},
		{Role: "system", Content: "be brief"},
		{Role: "human", Content: "  "},
		{Question: "only a question"},
	})
	require.Len(t, msgs, 5)
	assert.Equal(t, llms.ChatMessageTypeHuman, msgs[0].Role)
	assert.Equal(t, llms.ChatMessageTypeAI, msgs[1].Role)
	assert.Equal(t, llms.ChatMessageTypeAI, msgs[2].Role)
	assert.Equal(t, llms.ChatMessageTypeSystem, msgs[3].Role)
	assert.Equal(t, "only a question", textOf(msgs[4]))
}

func TestStripThinking(t *testing.T) {
	assert.Equal(t, "Answer.", stripThinking("<think>\nstep one\nstep two\n</think>\n\nAnswer."))
	assert.Equal(t, "A B", stripThinking("A <think>x</think>B"))
	assert.Equal(t, "plain", stripThinking("plain"))
}

func TestUniqueSources(t *testing.T) {
	got := uniqueSources([]models.RetrievedChunk{
		{Source: "b.pdf"}, {Source: "a.pdf"}, {Source: "b.pdf"}, {Source: ""}, {Source: "c.txt"},
	})
	assert.Equal(t, []string{"b.pdf", "a.pdf", "c.txt"}, got)

	nested := uniqueSources([]models.RetrievedChunk{
		{Source: "hr/guide.txt"}, {Source: "it/guide.txt"}, {Source: "doc.pdf"},
	})
	assert.Equal(t, []string{"guide.txt", "doc.pdf"}, nested)
}
