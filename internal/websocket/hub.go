package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"constitution-chat-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// clusterChannel is the redis pub/sub channel used to relay snapshots to
// clients connected to other instances.
const clusterChannel = "cluster_events"

type Hub struct {
	// Registered clients map: UserID -> List of Clients (multi-device)
	clients map[uuid.UUID][]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Lock for safe map access
	mu sync.RWMutex

	// Redis connection for cross-instance communication
	rdb *redis.Client

	// instanceID marks payloads we published ourselves so the redis
	// subscriber does not deliver them twice.
	instanceID string

	// Dedicated Logger
	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[uuid.UUID][]*Client),
		rdb:        rdb,
		instanceID: uuid.NewString(),
		logger:     log,
	}
}

func (h *Hub) Run() {
	// Start Redis Subscriber if Redis is available
	if h.rdb != nil {
		go h.subscribeToRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.UserID] = append(h.clients[client.UserID], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"user_id": client.UserID})

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.UserID]; ok {
				for i, c := range clients {
					if c == client {
						remaining := make([]*Client, 0, len(clients)-1)
						remaining = append(remaining, clients[:i]...)
						remaining = append(remaining, clients[i+1:]...)
						h.clients[client.UserID] = remaining
						client.closeSend()
						break
					}
				}
				if len(h.clients[client.UserID]) == 0 {
					delete(h.clients, client.UserID)
					h.logger.Info("Hub", "Client completely unregistered", map[string]interface{}{"user_id": client.UserID})
				}
			}
			h.mu.Unlock()
		}
	}
}

// clusterPayload is the wire frame relayed over redis. SessionID is set only
// for message snapshots, which are scoped to clients viewing that session.
type clusterPayload struct {
	Origin       string          `json:"origin"`
	TargetUserID string          `json:"target_user_id"`
	SessionID    string          `json:"session_id,omitempty"`
	Message      json.RawMessage `json:"message"`
}

// SendSessions delivers a sessions snapshot to every connection of a user.
func (h *Hub) SendSessions(userID uuid.UUID, data []byte) {
	h.deliverLocal(userID, nil, data)

	if h.rdb != nil {
		jsonPayload, _ := json.Marshal(clusterPayload{
			Origin:       h.instanceID,
			TargetUserID: userID.String(),
			Message:      data,
		})
		h.rdb.Publish(context.Background(), clusterChannel, jsonPayload)
	}
}

// SendMessages delivers a messages snapshot to the user's connections that
// currently have the given session selected.
func (h *Hub) SendMessages(userID, sessionID uuid.UUID, data []byte) {
	h.deliverLocal(userID, &sessionID, data)

	if h.rdb != nil {
		jsonPayload, _ := json.Marshal(clusterPayload{
			Origin:       h.instanceID,
			TargetUserID: userID.String(),
			SessionID:    sessionID.String(),
			Message:      data,
		})
		h.rdb.Publish(context.Background(), clusterChannel, jsonPayload)
	}
}

func (h *Hub) deliverLocal(userID uuid.UUID, sessionID *uuid.UUID, data []byte) {
	// Snapshot the client list under the lock; the unregister path may
	// rewrite the map entry while delivery is still in progress.
	h.mu.RLock()
	registered := h.clients[userID]
	clients := make([]*Client, len(registered))
	copy(clients, registered)
	h.mu.RUnlock()

	for _, client := range clients {
		if sessionID != nil && !client.IsViewing(*sessionID) {
			continue
		}
		if !client.trySend(data) {
			// Slow consumer. Unregister closes the channel.
			h.logger.Warn("Hub", "Client Send buffer full, dropping client", map[string]interface{}{"user_id": userID})
			h.unregister <- client
		}
	}
}

func (h *Hub) subscribeToRedis() {
	// Every instance subscribes to the same channel. When a payload arrives,
	// deliver it to matching local clients and drop it otherwise.
	ctx := context.Background()
	pubsub := h.rdb.Subscribe(ctx, clusterChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()

	for msg := range ch {
		var payload clusterPayload
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			log.Printf("Redis msg parse error: %v", err)
			continue
		}

		// Skip our own publishes, local delivery already happened.
		if payload.Origin == h.instanceID {
			continue
		}

		uid, err := uuid.Parse(payload.TargetUserID)
		if err != nil {
			continue
		}

		var sessionID *uuid.UUID
		if payload.SessionID != "" {
			sid, err := uuid.Parse(payload.SessionID)
			if err != nil {
				continue
			}
			sessionID = &sid
		}

		h.deliverLocal(uid, sessionID, payload.Message)
	}
}
