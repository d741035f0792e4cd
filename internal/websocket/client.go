package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// selectFrame is the only inbound frame clients send. It re-scopes which
// session's messages this connection receives.
type selectFrame struct {
	Type      string     `json:"type"`
	SessionID *uuid.UUID `json:"session_id"`
}

// SelectHandler is invoked when a client selects a new session, so the caller
// can push an initial messages snapshot.
type SelectHandler func(c *Client, sessionID uuid.UUID)

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	Hub *Hub

	// The websocket connection.
	Conn *websocket.Conn

	// UserID associated with this connection
	UserID uuid.UUID

	// Buffered channel of outbound messages.
	Send chan []byte

	// OnSelect fires after the active session changes.
	OnSelect SelectHandler

	// activeSession scopes the messages feed. Nil means no session selected.
	sessionMu     sync.RWMutex
	activeSession *uuid.UUID

	// sendMu serializes queueing against closing Send, so a snapshot
	// delivery racing a disconnect can never write to a closed channel.
	sendMu sync.Mutex
	closed bool
}

// trySend queues outbound data unless the connection is already closed.
// Returns false only when the buffer is full, marking a slow consumer.
func (c *Client) trySend(data []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

// closeSend shuts the outbound channel exactly once.
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// IsViewing reports whether this connection currently has the session selected.
func (c *Client) IsViewing(sessionID uuid.UUID) bool {
	c.sessionMu.RLock()
	defer c.sessionMu.RUnlock()
	return c.activeSession != nil && *c.activeSession == sessionID
}

// selectSession switches the active session. Reselecting the current session
// is a no-op so the feed does not churn.
func (c *Client) selectSession(sessionID *uuid.UUID) {
	c.sessionMu.Lock()
	same := c.activeSession != nil && sessionID != nil && *c.activeSession == *sessionID
	if !same {
		c.activeSession = sessionID
	}
	c.sessionMu.Unlock()

	if same || sessionID == nil {
		return
	}
	if c.OnSelect != nil {
		c.OnSelect(c, *sessionID)
	}
}

// readPump pumps messages from the websocket connection to the hub.
func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("readPump error for user %s: %v", c.UserID, err)
			}
			break
		}

		var frame selectFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			log.Printf("readPump: unparsable frame from user %s: %v", c.UserID, err)
			continue
		}
		if frame.Type == "select_session" {
			c.selectSession(frame.SessionID)
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

			// Flush queued snapshots as individual frames, each one is a
			// self-contained JSON document.
			n := len(c.Send)
			for i := 0; i < n; i++ {
				if err := c.Conn.WriteMessage(websocket.TextMessage, <-c.Send); err != nil {
					return
				}
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
