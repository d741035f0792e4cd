package config

import (
	"testing"

	"constitution-chat-be/pkg/llm/factory"
	"constitution-chat-be/pkg/llm/gemini"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderBaseURL(t *testing.T) {
	cfg := &Config{
		Ai: AIConfig{
			LLMProvider:   "ollama",
			OllamaBaseURL: "http://localhost:11434",
		},
	}
	assert.Equal(t, "http://localhost:11434", cfg.ProviderBaseURL())

	cfg.Ai.LLMProvider = "gemini"
	assert.Empty(t, cfg.ProviderBaseURL(), "the Ollama URL must not leak into the Gemini provider")

	cfg.Ai.GeminiBaseURL = "https://gemini.example.com/v1beta"
	assert.Equal(t, "https://gemini.example.com/v1beta", cfg.ProviderBaseURL())

	cfg.Ai.LLMProvider = "huggingface"
	assert.Empty(t, cfg.ProviderBaseURL())

	cfg.Ai.HuggingFaceBaseURL = "https://hf.example.com/v1"
	assert.Equal(t, "https://hf.example.com/v1", cfg.ProviderBaseURL())
}

func TestProviderBaseURL_GeminiResolvesGoogleEndpoint(t *testing.T) {
	cfg := &Config{
		Keys: APIKeys{GoogleGemini: "test-key"},
		Ai: AIConfig{
			LLMProvider:   "gemini",
			LLMModel:      "gemini-2.0-flash",
			OllamaBaseURL: "http://localhost:11434",
		},
	}

	provider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.ProviderBaseURL(),
		cfg.ProviderKey(),
	)
	require.NoError(t, err)

	g, ok := provider.(*gemini.GeminiProvider)
	require.True(t, ok)
	assert.Equal(t, "https://generativelanguage.googleapis.com/v1beta", g.BaseURL)
}

func TestProviderKey(t *testing.T) {
	cfg := &Config{
		Keys: APIKeys{
			GoogleGemini: "gemini-key",
			HuggingFace:  "hf-key",
		},
	}

	cfg.Ai.LLMProvider = "gemini"
	assert.Equal(t, "gemini-key", cfg.ProviderKey())

	cfg.Ai.LLMProvider = "huggingface"
	assert.Equal(t, "hf-key", cfg.ProviderKey())
}
