package websocket

import (
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// ServeWs attaches a new client to the hub and runs its pumps. onConnect
// fires after registration so the caller can push the initial sessions
// snapshot, onSelect fires when the client picks a session.
func ServeWs(hub *Hub, c *websocket.Conn, userID uuid.UUID, onConnect func(*Client), onSelect SelectHandler) {
	client := &Client{
		Hub:      hub,
		Conn:     c,
		UserID:   userID,
		Send:     make(chan []byte, 256),
		OnSelect: onSelect,
	}
	client.Hub.register <- client

	go client.writePump()

	if onConnect != nil {
		onConnect(client)
	}

	client.readPump() // Run readPump in current goroutine (handler)
}

// Deliver queues a payload on a single connection, dropping the client when
// its buffer is full.
func (c *Client) Deliver(data []byte) {
	select {
	case c.Send <- data:
	default:
		c.Hub.unregister <- c
	}
}
