package factory

import (
	"testing"

	"constitution-chat-be/pkg/llm/gemini"
	"constitution-chat-be/pkg/llm/huggingface"
	"constitution-chat-be/pkg/llm/ollama"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLLMProvider(t *testing.T) {
	t.Run("ollama with default base url", func(t *testing.T) {
		provider, err := NewLLMProvider("ollama", "llama3", "", "")
		require.NoError(t, err)
		ollamaProvider, ok := provider.(*ollama.OllamaProvider)
		require.True(t, ok)
		assert.Equal(t, "http://localhost:11434", ollamaProvider.BaseURL)
	})

	t.Run("gemini", func(t *testing.T) {
		provider, err := NewLLMProvider("gemini", "gemini-2.0-flash", "", "some-key")
		require.NoError(t, err)
		_, ok := provider.(*gemini.GeminiProvider)
		assert.True(t, ok)
	})

	t.Run("gemini requires api key", func(t *testing.T) {
		_, err := NewLLMProvider("gemini", "gemini-2.0-flash", "", "")
		require.Error(t, err)
	})

	t.Run("huggingface", func(t *testing.T) {
		provider, err := NewLLMProvider("huggingface", "some-model", "", "some-key")
		require.NoError(t, err)
		_, ok := provider.(*huggingface.HuggingFaceProvider)
		assert.True(t, ok)
	})

	t.Run("huggingface requires api key", func(t *testing.T) {
		_, err := NewLLMProvider("huggingface", "some-model", "", "")
		require.Error(t, err)
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := NewLLMProvider("watson", "whatever", "", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported")
	})
}
