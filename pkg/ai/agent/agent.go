package agent

import (
	"context"
	"log"

	"constitution-chat-be/internal/constant"
	"constitution-chat-be/pkg/llm"
)

// Agent wraps an LLM provider with the constitutional-law persona. Callers
// get the raw provider error back and decide the fallback policy themselves.
type Agent struct {
	llmProvider llm.LLMProvider
	logger      *log.Logger
}

func NewAgent(llmProvider llm.LLMProvider, logger *log.Logger) *Agent {
	return &Agent{
		llmProvider: llmProvider,
		logger:      logger,
	}
}

// Reply answers the user's message in the context of the prior conversation.
// The system prompt is always the first turn sent to the provider.
func (a *Agent) Reply(ctx context.Context, history []llm.Message, message string) (string, error) {
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{
		Role:    constant.ChatMessageRoleSystem,
		Content: constant.AgentSystemPrompt,
	})
	messages = append(messages, history...)
	messages = append(messages, llm.Message{
		Role:    constant.ChatMessageRoleUser,
		Content: message,
	})

	a.logger.Printf("[AGENT] Executing with %d messages (incl. history)", len(messages))

	response, err := a.llmProvider.Chat(ctx, messages, llm.WithTemperature(constant.CompletionTemperature))
	if err != nil {
		a.logger.Printf("[AGENT] LLM error: %v", err)
		return "", err
	}

	return response, nil
}

// Complete answers a single stand-alone message with no conversation history.
func (a *Agent) Complete(ctx context.Context, message string) (string, error) {
	return a.Reply(ctx, nil, message)
}
