package title

import (
	"context"
	"fmt"
	"log"
	"strings"

	"constitution-chat-be/internal/constant"
	"constitution-chat-be/pkg/llm"
)

// Generator produces a short session title from the first user message.
// Errors propagate to the caller, which applies the default-title fallback.
type Generator struct {
	llmProvider llm.LLMProvider
	logger      *log.Logger
}

func NewGenerator(llmProvider llm.LLMProvider, logger *log.Logger) *Generator {
	return &Generator{
		llmProvider: llmProvider,
		logger:      logger,
	}
}

func (g *Generator) FromFirstMessage(ctx context.Context, message string) (string, error) {
	messages := []llm.Message{
		{
			Role:    constant.ChatMessageRoleSystem,
			Content: constant.TitleSystemPrompt,
		},
		{
			Role:    constant.ChatMessageRoleUser,
			Content: fmt.Sprintf(constant.TitleUserPromptTemplate, message),
		},
	}

	response, err := g.llmProvider.Chat(ctx, messages, llm.WithTemperature(constant.CompletionTemperature))
	if err != nil {
		g.logger.Printf("[TITLE] LLM error: %v", err)
		return "", err
	}

	title := sanitize(response)
	if title == "" {
		return "", fmt.Errorf("title generation returned an empty title")
	}

	return title, nil
}

// sanitize strips quoting and newlines models tend to wrap titles in, then
// hard-caps the length.
func sanitize(raw string) string {
	title := strings.TrimSpace(raw)
	if idx := strings.IndexAny(title, "\r\n"); idx >= 0 {
		title = title[:idx]
	}
	title = strings.Trim(title, `"'`)
	title = strings.TrimSpace(title)

	runes := []rune(title)
	if len(runes) > constant.TitleMaxLength {
		title = string(runes[:constant.TitleMaxLength])
	}
	return title
}
