package gemini

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

func replyWith(text string) geminiResponse {
	return geminiResponse{
		Candidates: []*geminiCandidate{
			{Content: &geminiContent{Parts: []*geminiPart{{Text: text}}}},
		},
	}
}

func TestChat(t *testing.T) {
	var got geminiRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-2.0-flash:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		json.NewEncoder(w).Encode(replyWith("Chapter two sets out state policy objectives."))
	}))
	defer server.Close()

	provider := NewGeminiProvider("test-key", server.URL, "gemini-2.0-flash")
	reply, err := provider.Chat(context.Background(), []llm.Message{
		{Role: "system", Content: "You are a lawyer."},
		{Role: "user", Content: "What is chapter two about?"},
		{Role: "assistant", Content: "It concerns directive principles."},
		{Role: "user", Content: "Summarize it."},
	})
	require.NoError(t, err)
	assert.Equal(t, "Chapter two sets out state policy objectives.", reply)

	// System turns travel as systemInstruction, not as contents.
	require.NotNil(t, got.SystemInstruction)
	assert.Equal(t, "You are a lawyer.", got.SystemInstruction.Parts[0].Text)
	require.Len(t, got.Contents, 3)
	assert.Equal(t, "user", got.Contents[0].Role)
	assert.Equal(t, "model", got.Contents[1].Role)
	assert.Equal(t, "user", got.Contents[2].Role)
}

func TestChatEmptyCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(geminiResponse{})
	}))
	defer server.Close()

	provider := NewGeminiProvider("test-key", server.URL, "gemini-2.0-flash")
	_, err := provider.Chat(context.Background(), []llm.Message{{Role: "user", Content: "hi"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty candidates")
}

func TestChatServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"quota exceeded"}}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	provider := NewGeminiProvider("test-key", server.URL, "gemini-2.0-flash")
	_, err := provider.Chat(context.Background(), []llm.Message{{Role: "user", Content: "hi"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}

func TestChatGenerationConfig(t *testing.T) {
	var got geminiRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(replyWith("ok"))
	}))
	defer server.Close()

	provider := NewGeminiProvider("test-key", server.URL, "gemini-2.0-flash")
	_, err := provider.Chat(context.Background(), []llm.Message{{Role: "user", Content: "hi"}},
		llm.WithTemperature(0.3),
		llm.WithMaxTokens(128),
	)
	require.NoError(t, err)
	require.NotNil(t, got.GenerationConfig)
	assert.Equal(t, 0.3, got.GenerationConfig.Temperature)
	assert.Equal(t, 128, got.GenerationConfig.MaxOutputTokens)
}

func TestDefaultBaseURL(t *testing.T) {
	provider := NewGeminiProvider("test-key", "", "gemini-2.0-flash")
	assert.Equal(t, defaultBaseURL, provider.BaseURL)
}
