package service

import (
	"context"
	"encoding/json"

	"constitution-chat-be/internal/dto"
	"constitution-chat-be/internal/pkg/logger"
	"constitution-chat-be/internal/repository/specification"
	"constitution-chat-be/internal/repository/unitofwork"
	"constitution-chat-be/internal/websocket"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

// SyncService bridges the in-process change feed and the websocket hub.
// Each change event triggers a re-read of the full matching result set,
// which is pushed to subscribers as a replacement snapshot. Consumers never
// see partial diffs.
type SyncService struct {
	uowFactory unitofwork.RepositoryFactory
	subscriber message.Subscriber
	hub        *websocket.Hub
	logger     logger.ILogger
}

func NewSyncService(
	uowFactory unitofwork.RepositoryFactory,
	subscriber message.Subscriber,
	hub *websocket.Hub,
	log logger.ILogger,
) *SyncService {
	return &SyncService{
		uowFactory: uowFactory,
		subscriber: subscriber,
		hub:        hub,
		logger:     log,
	}
}

// Start subscribes to both change topics and consumes them until the context
// is cancelled.
func (s *SyncService) Start(ctx context.Context) error {
	sessionsCh, err := s.subscriber.Subscribe(ctx, TopicSessionsChanged)
	if err != nil {
		return err
	}
	messagesCh, err := s.subscriber.Subscribe(ctx, TopicMessagesChanged)
	if err != nil {
		return err
	}

	go s.consumeSessions(ctx, sessionsCh)
	go s.consumeMessages(ctx, messagesCh)

	s.logger.Info("SyncService", "Sync service started", nil)
	return nil
}

func (s *SyncService) consumeSessions(ctx context.Context, ch <-chan *message.Message) {
	for msg := range ch {
		var change SessionsChanged
		if err := json.Unmarshal(msg.Payload, &change); err != nil {
			s.logger.Error("SyncService", "Unparsable sessions change", map[string]interface{}{"error": err.Error()})
			msg.Ack()
			continue
		}
		s.PushSessions(ctx, change.UserId)
		msg.Ack()
	}
}

func (s *SyncService) consumeMessages(ctx context.Context, ch <-chan *message.Message) {
	for msg := range ch {
		var change MessagesChanged
		if err := json.Unmarshal(msg.Payload, &change); err != nil {
			s.logger.Error("SyncService", "Unparsable messages change", map[string]interface{}{"error": err.Error()})
			msg.Ack()
			continue
		}
		s.PushMessages(ctx, change.UserId, change.SessionId)
		msg.Ack()
	}
}

// PushSessions delivers the current sessions snapshot to every connection of
// a user.
func (s *SyncService) PushSessions(ctx context.Context, userId uuid.UUID) {
	data, err := s.SessionsSnapshot(ctx, userId)
	if err != nil {
		s.logger.Error("SyncService", "Failed to build sessions snapshot", map[string]interface{}{
			"user_id": userId,
			"error":   err.Error(),
		})
		return
	}
	s.hub.SendSessions(userId, data)
}

// PushMessages delivers the current messages snapshot to the user's
// connections viewing the session.
func (s *SyncService) PushMessages(ctx context.Context, userId, sessionId uuid.UUID) {
	data, err := s.MessagesSnapshot(ctx, userId, sessionId)
	if err != nil {
		s.logger.Error("SyncService", "Failed to build messages snapshot", map[string]interface{}{
			"user_id":    userId,
			"session_id": sessionId,
			"error":      err.Error(),
		})
		return
	}
	s.hub.SendMessages(userId, sessionId, data)
}

// SessionsSnapshot builds the full sessions frame for a user, most recent
// activity first.
func (s *SyncService) SessionsSnapshot(ctx context.Context, userId uuid.UUID) ([]byte, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	chatSessions, err := uow.ChatSessionRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "last_activity_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	sessions := make([]*dto.SessionResponse, 0, len(chatSessions))
	for _, cs := range chatSessions {
		sessions = append(sessions, sessionToResponse(cs))
	}

	return json.Marshal(dto.SessionsSnapshot{
		Type:     dto.SnapshotTypeSessions,
		Sessions: sessions,
	})
}

// MessagesSnapshot builds the full messages frame for a session in
// chronological order. A deleted session yields an empty snapshot, which
// clears the thread on the client.
func (s *SyncService) MessagesSnapshot(ctx context.Context, userId, sessionId uuid.UUID) ([]byte, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	chatMessages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	messages := make([]*dto.MessageResponse, 0, len(chatMessages))
	for _, m := range chatMessages {
		messages = append(messages, messageToResponse(m))
	}

	return json.Marshal(dto.MessagesSnapshot{
		Type:      dto.SnapshotTypeMessages,
		SessionId: sessionId,
		Messages:  messages,
	})
}
