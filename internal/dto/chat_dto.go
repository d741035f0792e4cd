package dto

import (
	"github.com/google/uuid"
)

type CreateSessionResponse struct {
	Id uuid.UUID `json:"id"`
}

// SessionResponse mirrors the chatSessions wire shape: timestamps travel as
// epoch milliseconds.
type SessionResponse struct {
	Id          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	LastMessage string    `json:"last_message"`
	Timestamp   int64     `json:"timestamp"`
	UserId      uuid.UUID `json:"user_id"`
}

type MessageResponse struct {
	Id        uuid.UUID `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp int64     `json:"timestamp"`
	UserId    uuid.UUID `json:"user_id"`
	SessionId uuid.UUID `json:"session_id"`
}

type SendChatRequest struct {
	ChatSessionId uuid.UUID `json:"chat_session_id" validate:"required"`
	Message       string    `json:"message" validate:"required"`
}

type SendChatResponse struct {
	ChatSessionId    uuid.UUID        `json:"chat_session_id"`
	ChatSessionTitle string           `json:"title"`
	Sent             *MessageResponse `json:"sent"`
	Reply            *MessageResponse `json:"reply"`
}

// CompletionRequest is the body of the public POST /chat relay.
type CompletionRequest struct {
	Message string `json:"message" validate:"required"`
}

type CompletionResponse struct {
	Reply string `json:"reply"`
}

// WebSocket snapshot frames. On every store change the full matching result
// set is re-delivered, never a patch.

const (
	SnapshotTypeSessions = "sessions"
	SnapshotTypeMessages = "messages"
)

type SessionsSnapshot struct {
	Type     string             `json:"type"`
	Sessions []*SessionResponse `json:"sessions"`
}

type MessagesSnapshot struct {
	Type      string             `json:"type"`
	SessionId uuid.UUID          `json:"session_id"`
	Messages  []*MessageResponse `json:"messages"`
}

// SelectSessionFrame is the single inbound frame clients send to re-scope
// their message feed.
type SelectSessionFrame struct {
	Type      string     `json:"type"`
	SessionId *uuid.UUID `json:"session_id"`
}
