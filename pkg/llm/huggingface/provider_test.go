package huggingface

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

func replyWith(text string) map[string]any {
	return map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": text}},
		},
	}
}

func TestChat(t *testing.T) {
	var got chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		json.NewEncoder(w).Encode(replyWith("Section 6 vests judicial powers in the courts."))
	}))
	defer server.Close()

	provider := NewHuggingFaceProvider("test-key", server.URL, "meta-llama/Llama-3.1-8B-Instruct")
	reply, err := provider.Chat(context.Background(), []llm.Message{
		{Role: "user", Content: "Who holds judicial power?"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Section 6 vests judicial powers in the courts.", reply)

	assert.Equal(t, "meta-llama/Llama-3.1-8B-Instruct", got.Model)
	// The provider enforces a sane token ceiling by default.
	assert.Equal(t, 500, got.MaxTokens)
}

func TestChatMapsModelRole(t *testing.T) {
	var got chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(replyWith("ok"))
	}))
	defer server.Close()

	provider := NewHuggingFaceProvider("test-key", server.URL, "some-model")
	_, err := provider.Chat(context.Background(), []llm.Message{
		{Role: "model", Content: "previous reply"},
	})
	require.NoError(t, err)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "assistant", got.Messages[0].Role)
}

func TestChatAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "model is overloaded"},
		})
	}))
	defer server.Close()

	provider := NewHuggingFaceProvider("test-key", server.URL, "some-model")
	_, err := provider.Chat(context.Background(), []llm.Message{{Role: "user", Content: "hi"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model is overloaded")
}

func TestChatEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer server.Close()

	provider := NewHuggingFaceProvider("test-key", server.URL, "some-model")
	_, err := provider.Chat(context.Background(), []llm.Message{{Role: "user", Content: "hi"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty choices")
}

func TestChatServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer server.Close()

	provider := NewHuggingFaceProvider("bad-key", server.URL, "some-model")
	_, err := provider.Chat(context.Background(), []llm.Message{{Role: "user", Content: "hi"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}
