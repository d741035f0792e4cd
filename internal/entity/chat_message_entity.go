package entity

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage is a single turn within a session. Messages are immutable after
// creation and are only ever bulk-deleted together with their session.
type ChatMessage struct {
	Id            uuid.UUID
	ChatSessionId uuid.UUID
	UserId        uuid.UUID
	Role          string
	Content       string
	CreatedAt     time.Time
	DeletedAt     *time.Time
	IsDeleted     bool
}
