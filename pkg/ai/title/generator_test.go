package title

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
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
}

func (s *stubProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	s.seen = history
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func (s *stubProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return s.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, options...)
}

func newTestGenerator(provider llm.LLMProvider) *Generator {
	return NewGenerator(provider, log.New(io.Discard, "", 0))
}

func TestFromFirstMessage(t *testing.T) {
	provider := &stubProvider{reply: "Presidential Powers"}
	g := newTestGenerator(provider)

	got, err := g.FromFirstMessage(context.Background(), "Can the president declare war alone?")
	require.NoError(t, err)
	assert.Equal(t, "Presidential Powers", got)

	// The prompt pair is fixed: system instruction plus the wrapped message.
	require.Len(t, provider.seen, 2)
	assert.Equal(t, "system", provider.seen[0].Role)
	assert.Equal(t, constant.TitleSystemPrompt, provider.seen[0].Content)
	assert.Equal(t, fmt.Sprintf(constant.TitleUserPromptTemplate, "Can the president declare war alone?"), provider.seen[1].Content)
}

func TestFromFirstMessageSanitizesOutput(t *testing.T) {
	cases := []struct {
		name  string
		reply string
		want  string
	}{
		{"wrapped in double quotes", `"State of Emergency"`, "State of Emergency"},
		{"wrapped in single quotes", `'State of Emergency'`, "State of Emergency"},
		{"surrounding whitespace", "  Impeachment Process  ", "Impeachment Process"},
		{"trailing explanation lines", "Electoral Law\nHere is a concise title for the chat.", "Electoral Law"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := newTestGenerator(&stubProvider{reply: tc.reply})
			got, err := g.FromFirstMessage(context.Background(), "question")
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestFromFirstMessageCapsLength(t *testing.T) {
	g := newTestGenerator(&stubProvider{reply: strings.Repeat("a", 200)})

	got, err := g.FromFirstMessage(context.Background(), "question")
	require.NoError(t, err)
	assert.Len(t, []rune(got), constant.TitleMaxLength)
}

func TestFromFirstMessageEmptyTitle(t *testing.T) {
	g := newTestGenerator(&stubProvider{reply: "   \n  "})

	_, err := g.FromFirstMessage(context.Background(), "question")
	require.Error(t, err)
}

func TestFromFirstMessageProviderError(t *testing.T) {
	providerErr := errors.New("title model offline")
	g := newTestGenerator(&stubProvider{err: providerErr})

	_, err := g.FromFirstMessage(context.Background(), "question")
	assert.ErrorIs(t, err, providerErr)
}
