package entity

import (
	"time"

	"github.com/google/uuid"
)

// ChatSession is one conversation thread owned by a single user.
// LastMessage is a denormalized preview of the most recent turn;
// LastActivityAt is bumped on every completed exchange.
type ChatSession struct {
	Id             uuid.UUID
	UserId         uuid.UUID
	Title          string
	LastMessage    string
	LastActivityAt time.Time
	CreatedAt      time.Time
	UpdatedAt      *time.Time
	DeletedAt      *time.Time
	IsDeleted      bool
}
