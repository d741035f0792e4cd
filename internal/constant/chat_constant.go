package constant

const (
	ChatMessageRoleUser      = "user"
	ChatMessageRoleAssistant = "assistant"
	ChatMessageRoleSystem    = "system"

	// DefaultSessionTitle is the placeholder title a session carries until the
	// first exchange produces a generated one. It is also the fallback when
	// title generation fails.
	DefaultSessionTitle = "New Chat"

	// CompletionFallbackReply is returned by the /chat relay when the
	// completion provider cannot be reached. The exact wording is part of the
	// client contract.
	CompletionFallbackReply = "I apologize, but I'm having trouble processing your request right now."

	AgentSystemPrompt = "You are a knowledgeable expert on the Nigerian Constitution. " +
		"Provide accurate, helpful advice while citing relevant sections of the constitution " +
		"or legal precedents. Be concise but thorough."

	TitleSystemPrompt = "You are a concise title generator. Create a short, descriptive title " +
		"(max 40 characters) based on the user's first message. Focus on the main topic or question."

	// TitleUserPromptTemplate wraps the first user message for the title model.
	TitleUserPromptTemplate = `Generate a title for this chat: "%s"`

	// Both the agent and the title generator run at the same temperature.
	CompletionTemperature = 0.7

	// TitleMaxLength is a hard client-side cap on generated titles; the model
	// is instructed to stay under 40 characters but is not trusted to.
	TitleMaxLength = 80
)

// Event type codes published to the durable event stream.
const (
	EventSessionCreated = "SESSION_CREATED"
	EventSessionUpdated = "SESSION_UPDATED"
	EventSessionDeleted = "SESSION_DELETED"
	EventMessageCreated = "MESSAGE_CREATED"
	EventUserRegistered = "USER_REGISTERED"
)
