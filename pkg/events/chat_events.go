package events

import (
	"constitution-chat-be/internal/constant"

	"github.com/google/uuid"
)

// Constructors for the chat domain events. Payload keys double as template
// placeholders on the consumer side, keep them stable.

func NewSessionCreated(userId, sessionId uuid.UUID, title string) Event {
	return newBaseEvent(constant.EventSessionCreated, map[string]interface{}{
		"user_id":    userId,
		"session_id": sessionId,
		"title":      title,
	})
}

func NewSessionUpdated(userId, sessionId uuid.UUID, title string) Event {
	return newBaseEvent(constant.EventSessionUpdated, map[string]interface{}{
		"user_id":    userId,
		"session_id": sessionId,
		"title":      title,
	})
}

func NewSessionDeleted(userId, sessionId uuid.UUID) Event {
	return newBaseEvent(constant.EventSessionDeleted, map[string]interface{}{
		"user_id":    userId,
		"session_id": sessionId,
	})
}

func NewMessageCreated(userId, sessionId, messageId uuid.UUID, role string) Event {
	return newBaseEvent(constant.EventMessageCreated, map[string]interface{}{
		"user_id":    userId,
		"session_id": sessionId,
		"message_id": messageId,
		"role":       role,
	})
}

func NewUserRegistered(userId uuid.UUID, email string) Event {
	return newBaseEvent(constant.EventUserRegistered, map[string]interface{}{
		"user_id": userId,
		"email":   email,
	})
}
