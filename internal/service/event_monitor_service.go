package service

import (
	"context"
	"strings"

	"constitution-chat-be/internal/pkg/logger"
	"constitution-chat-be/pkg/events"
	pkgnats "constitution-chat-be/pkg/nats"
)

// EventMonitorService drains the durable event stream into the audit log.
// The durable consumer means restarts pick up where the worker left off.
type EventMonitorService struct {
	subscriber *pkgnats.Subscriber
	logger     logger.ILogger
}

func NewEventMonitorService(subscriber *pkgnats.Subscriber, log logger.ILogger) *EventMonitorService {
	return &EventMonitorService{
		subscriber: subscriber,
		logger:     log,
	}
}

// Start begins listening to the event bus.
func (s *EventMonitorService) Start() {
	err := s.subscriber.Subscribe("events.>", "chat-events-worker", s.handleEvent)
	if err != nil {
		s.logger.Error("EventMonitorService", "Failed to start event subscriber", map[string]interface{}{"error": err})
		return
	}
	s.logger.Info("EventMonitorService", "Event monitor started, listening to events.>", nil)
}

func (s *EventMonitorService) handleEvent(ctx context.Context, event events.Event) error {
	// The NATS subject carries the stream prefix.
	typeCode := strings.TrimPrefix(event.EventType(), "events.")

	s.logger.Info("EventMonitorService", "Event observed", map[string]interface{}{
		"type":    typeCode,
		"payload": event.Payload(),
	})
	return nil
}
