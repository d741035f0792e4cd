package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"constitution-chat-be/internal/constant"
	"constitution-chat-be/internal/dto"
	"constitution-chat-be/internal/entity"
	"constitution-chat-be/internal/pkg/logger"
	"constitution-chat-be/internal/repository/memory"
	"constitution-chat-be/internal/repository/specification"
	"constitution-chat-be/internal/repository/unitofwork"
	"constitution-chat-be/pkg/ai/agent"
	"constitution-chat-be/pkg/ai/title"
	"constitution-chat-be/pkg/events"
	"constitution-chat-be/pkg/llm"
	pkgnats "constitution-chat-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var (
	ErrSessionNotFound = errors.New("session not found or access denied")
	ErrEmptyMessage    = errors.New("message must not be empty")
	ErrSendInFlight    = errors.New("a message is already being processed for this session")
	ErrDeleteInFlight  = errors.New("a session deletion is already in progress")
)

// CompletionError marks a send that failed at the completion step. The user
// message persisted by the earlier steps stays in place; only the assistant
// reply and the second session update are missing.
type CompletionError struct {
	Err error
}

func (e *CompletionError) Error() string {
	return "completion failed: " + e.Err.Error()
}

func (e *CompletionError) Unwrap() error {
	return e.Err
}

// Change feed topics consumed by the sync service.
const (
	TopicSessionsChanged = "chat.sessions.changed"
	TopicMessagesChanged = "chat.messages.changed"
)

type SessionsChanged struct {
	UserId uuid.UUID `json:"user_id"`
}

type MessagesChanged struct {
	UserId    uuid.UUID `json:"user_id"`
	SessionId uuid.UUID `json:"session_id"`
}

type IChatService interface {
	CreateSession(ctx context.Context, userId uuid.UUID) (*dto.CreateSessionResponse, error)
	GetAllSessions(ctx context.Context, userId uuid.UUID) ([]*dto.SessionResponse, error)
	GetChatHistory(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) ([]*dto.MessageResponse, error)
	SendChat(ctx context.Context, userId uuid.UUID, request *dto.SendChatRequest) (*dto.SendChatResponse, error)
	DeleteSession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) error

	// Complete answers a stand-alone message for the public relay endpoint.
	// Nothing is persisted, provider errors propagate to the caller.
	Complete(ctx context.Context, message string) (string, error)
}

type chatService struct {
	uowFactory      unitofwork.RepositoryFactory
	agent           *agent.Agent
	titleGenerator  *title.Generator
	flightRepo      *memory.FlightRepository
	changePublisher message.Publisher
	eventPublisher  *pkgnats.Publisher
	logger          logger.ILogger
}

func NewChatService(
	uowFactory unitofwork.RepositoryFactory,
	chatAgent *agent.Agent,
	titleGenerator *title.Generator,
	flightRepo *memory.FlightRepository,
	changePublisher message.Publisher,
	eventPublisher *pkgnats.Publisher,
	log logger.ILogger,
) IChatService {
	return &chatService{
		uowFactory:      uowFactory,
		agent:           chatAgent,
		titleGenerator:  titleGenerator,
		flightRepo:      flightRepo,
		changePublisher: changePublisher,
		eventPublisher:  eventPublisher,
		logger:          log,
	}
}

// CreateSession writes a new session with the placeholder title. The store
// assigns nothing, the id is generated here.
func (cs *chatService) CreateSession(ctx context.Context, userId uuid.UUID) (*dto.CreateSessionResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)
	now := time.Now()

	chatSession := entity.ChatSession{
		Id:             uuid.New(),
		UserId:         userId,
		Title:          constant.DefaultSessionTitle,
		LastMessage:    "",
		LastActivityAt: now,
		CreatedAt:      now,
	}

	if err := uow.ChatSessionRepository().Create(ctx, &chatSession); err != nil {
		return nil, err
	}

	cs.publishSessionsChanged(chatSession.UserId)
	cs.publishEvent(ctx, events.NewSessionCreated(chatSession.UserId, chatSession.Id, chatSession.Title))

	return &dto.CreateSessionResponse{Id: chatSession.Id}, nil
}

// GetAllSessions returns the user's sessions, most recent activity first.
func (cs *chatService) GetAllSessions(ctx context.Context, userId uuid.UUID) ([]*dto.SessionResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	chatSessions, err := uow.ChatSessionRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "last_activity_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	response := make([]*dto.SessionResponse, 0, len(chatSessions))
	for _, s := range chatSessions {
		response = append(response, sessionToResponse(s))
	}

	return response, nil
}

// GetChatHistory returns a session's messages in chronological order.
func (cs *chatService) GetChatHistory(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) ([]*dto.MessageResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	sess, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: sessionId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}

	chatMessages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	response := make([]*dto.MessageResponse, 0, len(chatMessages))
	for _, m := range chatMessages {
		response = append(response, messageToResponse(m))
	}

	return response, nil
}

// SendChat runs the send protocol. The steps are deliberately NOT wrapped in
// a transaction: a failure mid-way leaves the earlier writes visible, matching
// the store contract the clients were built against. The per-session flight
// gate keeps concurrent sends from interleaving their partial states.
func (cs *chatService) SendChat(ctx context.Context, userId uuid.UUID, request *dto.SendChatRequest) (*dto.SendChatResponse, error) {
	text := strings.TrimSpace(request.Message)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	if !cs.flightRepo.TryAcquireSend(request.ChatSessionId.String()) {
		return nil, ErrSendInFlight
	}
	defer cs.flightRepo.ReleaseSend(request.ChatSessionId.String())

	uow := cs.uowFactory.NewUnitOfWork(ctx)

	chatSession, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: request.ChatSessionId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if chatSession == nil {
		return nil, ErrSessionNotFound
	}

	// Conversation history load happens before the new message is written so
	// the agent sees exactly the prior turns.
	history, err := cs.loadHistory(ctx, uow, request.ChatSessionId)
	if err != nil {
		return nil, err
	}

	now := time.Now()

	// Step 1: persist the user's message.
	userMessage := entity.ChatMessage{
		Id:            uuid.New(),
		ChatSessionId: chatSession.Id,
		UserId:        userId,
		Role:          constant.ChatMessageRoleUser,
		Content:       text,
		CreatedAt:     now,
	}
	if err := uow.ChatMessageRepository().Create(ctx, &userMessage); err != nil {
		return nil, err
	}
	cs.publishMessagesChanged(userId, chatSession.Id)
	cs.publishEvent(ctx, events.NewMessageCreated(userId, chatSession.Id, userMessage.Id, userMessage.Role))

	// Step 2: first message ever names the session.
	count, err := uow.ChatMessageRepository().Count(ctx,
		specification.ByChatSessionID{ChatSessionID: chatSession.Id},
	)
	if err != nil {
		return nil, err
	}
	if count == 1 {
		generatedTitle, titleErr := cs.titleGenerator.FromFirstMessage(ctx, text)
		if titleErr != nil {
			cs.logger.Warn("ChatService", "Title generation failed, keeping placeholder", map[string]interface{}{
				"session_id": chatSession.Id,
				"error":      titleErr.Error(),
			})
			generatedTitle = constant.DefaultSessionTitle
		}
		chatSession.Title = generatedTitle
	}

	// Step 3: first session update, reflecting the user's message.
	chatSession.LastMessage = text
	chatSession.LastActivityAt = now
	if err := uow.ChatSessionRepository().Update(ctx, chatSession); err != nil {
		return nil, err
	}
	cs.publishSessionsChanged(userId)
	cs.publishEvent(ctx, events.NewSessionUpdated(userId, chatSession.Id, chatSession.Title))

	// Step 4: completion. On failure the protocol stops here, the user
	// message stays persisted and the caller decides how to surface it.
	reply, err := cs.agent.Reply(ctx, history, text)
	if err != nil {
		return nil, &CompletionError{Err: err}
	}

	// Step 5: persist the assistant's reply.
	assistantMessage := entity.ChatMessage{
		Id:            uuid.New(),
		ChatSessionId: chatSession.Id,
		UserId:        userId,
		Role:          constant.ChatMessageRoleAssistant,
		Content:       reply,
		CreatedAt:     time.Now(),
	}
	if err := uow.ChatMessageRepository().Create(ctx, &assistantMessage); err != nil {
		return nil, err
	}
	cs.publishMessagesChanged(userId, chatSession.Id)
	cs.publishEvent(ctx, events.NewMessageCreated(userId, chatSession.Id, assistantMessage.Id, assistantMessage.Role))

	// Step 6: second session update, reflecting the reply.
	chatSession.LastMessage = reply
	chatSession.LastActivityAt = assistantMessage.CreatedAt
	if err := uow.ChatSessionRepository().Update(ctx, chatSession); err != nil {
		return nil, err
	}
	cs.publishSessionsChanged(userId)
	cs.publishEvent(ctx, events.NewSessionUpdated(userId, chatSession.Id, chatSession.Title))

	return &dto.SendChatResponse{
		ChatSessionId:    chatSession.Id,
		ChatSessionTitle: chatSession.Title,
		Sent:             messageToResponse(&userMessage),
		Reply:            messageToResponse(&assistantMessage),
	}, nil
}

// DeleteSession removes a session and its messages. The two deletes run in
// parallel, mirroring the store's independent per-collection writes; the
// per-user gate keeps a second delete from racing the first.
func (cs *chatService) DeleteSession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) error {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	sess, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: sessionId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return err
	}
	if sess == nil {
		return ErrSessionNotFound
	}

	if !cs.flightRepo.TryAcquireDelete(userId.String()) {
		return ErrDeleteInFlight
	}
	defer cs.flightRepo.ReleaseDelete(userId.String())

	// Hard deletes. A removed session must never resurface through the
	// soft-delete scope, and its messages go with it.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return cs.uowFactory.NewUnitOfWork(gctx).ChatMessageRepository().DeleteByChatSessionId(gctx, sessionId)
	})
	g.Go(func() error {
		return cs.uowFactory.NewUnitOfWork(gctx).ChatSessionRepository().DeleteUnscoped(gctx, sessionId)
	})
	if err := g.Wait(); err != nil {
		return err
	}

	cs.publishSessionsChanged(userId)
	cs.publishMessagesChanged(userId, sessionId)
	cs.publishEvent(ctx, events.NewSessionDeleted(userId, sessionId))

	return nil
}

func (cs *chatService) Complete(ctx context.Context, message string) (string, error) {
	text := strings.TrimSpace(message)
	if text == "" {
		return "", ErrEmptyMessage
	}
	return cs.agent.Complete(ctx, text)
}

func (cs *chatService) loadHistory(ctx context.Context, uow unitofwork.UnitOfWork, sessionId uuid.UUID) ([]llm.Message, error) {
	chatMessages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	history := make([]llm.Message, 0, len(chatMessages))
	for _, m := range chatMessages {
		history = append(history, llm.Message{
			Role:    m.Role,
			Content: m.Content,
		})
	}
	return history, nil
}

// --- Change feed publishing ---

func (cs *chatService) publishSessionsChanged(userId uuid.UUID) {
	payload, _ := json.Marshal(SessionsChanged{UserId: userId})
	if err := cs.changePublisher.Publish(TopicSessionsChanged, message.NewMessage(watermill.NewUUID(), payload)); err != nil {
		cs.logger.Error("ChatService", "Failed to publish sessions change", map[string]interface{}{
			"user_id": userId,
			"error":   err.Error(),
		})
	}
}

func (cs *chatService) publishMessagesChanged(userId, sessionId uuid.UUID) {
	payload, _ := json.Marshal(MessagesChanged{UserId: userId, SessionId: sessionId})
	if err := cs.changePublisher.Publish(TopicMessagesChanged, message.NewMessage(watermill.NewUUID(), payload)); err != nil {
		cs.logger.Error("ChatService", "Failed to publish messages change", map[string]interface{}{
			"user_id":    userId,
			"session_id": sessionId,
			"error":      err.Error(),
		})
	}
}

func (cs *chatService) publishEvent(ctx context.Context, event events.Event) {
	if cs.eventPublisher == nil {
		return
	}
	if err := cs.eventPublisher.Publish(ctx, event); err != nil {
		cs.logger.Warn("ChatService", "Failed to publish integration event", map[string]interface{}{
			"type":  event.EventType(),
			"error": err.Error(),
		})
	}
}

// --- DTO mapping ---

func sessionToResponse(s *entity.ChatSession) *dto.SessionResponse {
	return &dto.SessionResponse{
		Id:          s.Id,
		Title:       s.Title,
		LastMessage: s.LastMessage,
		Timestamp:   s.LastActivityAt.UnixMilli(),
		UserId:      s.UserId,
	}
}

func messageToResponse(m *entity.ChatMessage) *dto.MessageResponse {
	return &dto.MessageResponse{
		Id:        m.Id,
		Role:      m.Role,
		Content:   m.Content,
		Timestamp: m.CreatedAt.UnixMilli(),
		UserId:    m.UserId,
		SessionId: m.ChatSessionId,
	}
}
