package agent

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"constitution-chat-be/internal/constant"
	"constitution-chat-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	reply string
	err   error
	seen  []llm.Message
	opts  llm.Options
}

func (s *stubProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	s.seen = history
	for _, o := range options {
		o(&s.opts)
	}
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func (s *stubProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return s.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, options...)
}

func newTestAgent(provider llm.LLMProvider) *Agent {
	return NewAgent(provider, log.New(io.Discard, "", 0))
}

func TestReplyPrependsSystemPrompt(t *testing.T) {
	provider := &stubProvider{reply: "Section 36 covers fair hearing."}
	a := newTestAgent(provider)

	history := []llm.Message{
		{Role: "user", Content: "What is due process?"},
		{Role: "assistant", Content: "It is covered in chapter four."},
	}

	reply, err := a.Reply(context.Background(), history, "Which section exactly?")
	require.NoError(t, err)
	assert.Equal(t, "Section 36 covers fair hearing.", reply)

	require.Len(t, provider.seen, 4)
	assert.Equal(t, "system", provider.seen[0].Role)
	assert.Equal(t, constant.AgentSystemPrompt, provider.seen[0].Content)
	assert.Equal(t, "What is due process?", provider.seen[1].Content)
	assert.Equal(t, "It is covered in chapter four.", provider.seen[2].Content)
	assert.Equal(t, "user", provider.seen[3].Role)
	assert.Equal(t, "Which section exactly?", provider.seen[3].Content)

	assert.Equal(t, constant.CompletionTemperature, provider.opts.Temperature)
}

func TestReplyPropagatesProviderError(t *testing.T) {
	providerErr := errors.New("model offline")
	a := newTestAgent(&stubProvider{err: providerErr})

	_, err := a.Reply(context.Background(), nil, "hello")
	assert.ErrorIs(t, err, providerErr)
}

func TestCompleteHasNoHistory(t *testing.T) {
	provider := &stubProvider{reply: "ok"}
	a := newTestAgent(provider)

	_, err := a.Complete(context.Background(), "stand-alone question")
	require.NoError(t, err)

	// Only the system prompt and the message itself.
	require.Len(t, provider.seen, 2)
	assert.Equal(t, "system", provider.seen[0].Role)
	assert.Equal(t, "stand-alone question", provider.seen[1].Content)
}
