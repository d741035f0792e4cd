package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"constitution-chat-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChat(t *testing.T) {
	var got ollamaChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		json.NewEncoder(w).Encode(ollamaChatResponse{
			Model:   got.Model,
			Message: ollamaMessage{Role: "assistant", Content: "Lagos was the capital until 1991."},
			Done:    true,
		})
	}))
	defer server.Close()

	provider := NewOllamaProvider(server.URL, "llama3")
	reply, err := provider.Chat(context.Background(), []llm.Message{
		{Role: "system", Content: "You are a historian."},
		{Role: "user", Content: "What was the old capital?"},
	}, llm.WithTemperature(0.2))
	require.NoError(t, err)
	assert.Equal(t, "Lagos was the capital until 1991.", reply)

	assert.Equal(t, "llama3", got.Model)
	assert.False(t, got.Stream)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "user", got.Messages[1].Role)
	require.NotNil(t, got.Options)
	assert.Equal(t, 0.2, got.Options.Temperature)
}

func TestChatMapsModelRole(t *testing.T) {
	var got ollamaChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(ollamaChatResponse{Message: ollamaMessage{Content: "ok"}})
	}))
	defer server.Close()

	provider := NewOllamaProvider(server.URL, "llama3")
	_, err := provider.Chat(context.Background(), []llm.Message{
		{Role: "model", Content: "previous reply"},
	})
	require.NoError(t, err)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "assistant", got.Messages[0].Role)
}

func TestChatOptionsOverride(t *testing.T) {
	var got ollamaChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(ollamaChatResponse{Message: ollamaMessage{Content: "ok"}})
	}))
	defer server.Close()

	provider := NewOllamaProvider(server.URL, "llama3")
	_, err := provider.Chat(context.Background(), []llm.Message{{Role: "user", Content: "hi"}},
		llm.WithModel("mistral"),
		llm.WithMaxTokens(64),
	)
	require.NoError(t, err)
	assert.Equal(t, "mistral", got.Model)
	assert.Equal(t, 64, got.Options.NumPredict)
}

func TestChatServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	provider := NewOllamaProvider(server.URL, "missing-model")
	_, err := provider.Chat(context.Background(), []llm.Message{{Role: "user", Content: "hi"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestGenerateWrapsPrompt(t *testing.T) {
	var got ollamaChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(ollamaChatResponse{Message: ollamaMessage{Content: "ok"}})
	}))
	defer server.Close()

	provider := NewOllamaProvider(server.URL, "llama3")
	_, err := provider.Generate(context.Background(), "single prompt")
	require.NoError(t, err)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "single prompt", got.Messages[0].Content)
}
