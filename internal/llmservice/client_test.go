package llmservice

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"docchat/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

func chatServer(t *testing.T, status int, answer string, seen *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if seen != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"rate limit reached"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": answer},
				"finish_reason": "stop",
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGenerateContent_OpenAICompatible(t *testing.T) {
	var body map[string]any
	srv := chatServer(t, http.StatusOK, "Pin Outlook.", &body)

	client, err := NewClient(&config.LLMConfig{
		Provider: "openai",
		BaseURL:  srv.URL,
		Key:      "Bearer test-key",
		Model:    "test-model",
		Timeout:  5 * time.Second,
	})
	require.NoError(t, err)

	answer, err := client.GenerateContent(context.Background(), []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, "be brief"),
		llms.TextParts(llms.ChatMessageTypeHuman, "what to pin?"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Pin Outlook.", answer)

	assert.Equal(t, "test-model", body["model"])
	assert.EqualValues(t, 0, body["temperature"])
	messages, ok := body["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, messages, 2)
}

func TestGenerateContent_ProviderError(t *testing.T) {
	srv := chatServer(t, http.StatusTooManyRequests, "", nil)
	client, err := NewClient(&config.LLMConfig{Provider: "openai", BaseURL: srv.URL, Key: "test-key", Model: "m"})
	require.NoError(t, err)

	_, err = client.GenerateContent(context.Background(), []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, "hi"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestNewClient_Errors(t *testing.T) {
	_, err := NewClient(&config.LLMConfig{Provider: "openai", Model: "m"})
	assert.Error(t, err)

	_, err = NewClient(&config.LLMConfig{Provider: "gemini", Model: "m"})
	assert.Error(t, err)

	_, err = NewClient(&config.LLMConfig{Provider: "ollama", BaseURL: "http://localhost:11434", Model: "llama3"})
	assert.NoError(t, err)
}

type emptyModel struct{}

func (emptyModel) GenerateContent(context.Context, []llms.MessageContent, ...llms.CallOption) (*llms.ContentResponse, error) {
	return &llms.ContentResponse{}, nil
}

func (emptyModel) Call(context.Context, string, ...llms.CallOption) (string, error) {
	return "", nil
}

func TestGenerateContent_NoChoices(t *testing.T) {
	client := NewClientWithModel(emptyModel{}, &config.LLMConfig{})
	_, err := client.GenerateContent(context.Background(), nil)
	assert.ErrorIs(t, err, errEmptyResponse)
}
