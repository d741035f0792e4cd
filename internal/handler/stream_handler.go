package handler

import (
	"context"

	"constitution-chat-be/internal/pkg/logger"
	"constitution-chat-be/internal/pkg/serverutils"
	"constitution-chat-be/internal/service"
	internalWS "constitution-chat-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// StreamHandler upgrades authenticated clients onto the live snapshot feed.
// On connect the client immediately receives its sessions snapshot; selecting
// a session yields that session's messages snapshot.
type StreamHandler struct {
	syncService *service.SyncService
	hub         *internalWS.Hub
	logger      logger.ILogger
}

func NewStreamHandler(syncService *service.SyncService, hub *internalWS.Hub, log logger.ILogger) *StreamHandler {
	return &StreamHandler{
		syncService: syncService,
		hub:         hub,
		logger:      log,
	}
}

// ServeWs handles websocket requests from the peer.
func (h *StreamHandler) ServeWs(c *fiber.Ctx) error {
	// Token source priority: query param (browser standard), then
	// Authorization header (tooling).
	tokenStr := c.Query("token")
	if tokenStr == "" {
		authHeader := c.Get("Authorization")
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			tokenStr = authHeader[7:]
		}
	}

	if tokenStr == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing token (Query 'token' or Header 'Authorization')"})
	}

	claims, err := serverutils.ParseToken(tokenStr)
	if err != nil {
		h.logger.Warn("StreamHandler", "Invalid token in WS handshake", map[string]interface{}{"error": err.Error()})
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	userIDStr, ok := claims["user_id"].(string)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Token missing user_id"})
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid user ID format in token"})
	}

	if websocket.IsWebSocketUpgrade(c) {
		return websocket.New(func(conn *websocket.Conn) {
			h.logger.Info("StreamHandler", "Starting WebSocket session", map[string]interface{}{"user_id": userID})
			internalWS.ServeWs(h.hub, conn, userID, h.onConnect, h.onSelect)
			h.logger.Info("StreamHandler", "WebSocket session ended", map[string]interface{}{"user_id": userID})
		})(c)
	}
	return fiber.ErrUpgradeRequired
}

// onConnect pushes the initial sessions snapshot to a fresh connection.
func (h *StreamHandler) onConnect(client *internalWS.Client) {
	data, err := h.syncService.SessionsSnapshot(context.Background(), client.UserID)
	if err != nil {
		h.logger.Error("StreamHandler", "Failed to build initial sessions snapshot", map[string]interface{}{
			"user_id": client.UserID,
			"error":   err.Error(),
		})
		return
	}
	client.Deliver(data)
}

// onSelect pushes the messages snapshot for a newly selected session.
func (h *StreamHandler) onSelect(client *internalWS.Client, sessionID uuid.UUID) {
	data, err := h.syncService.MessagesSnapshot(context.Background(), client.UserID, sessionID)
	if err != nil {
		h.logger.Error("StreamHandler", "Failed to build messages snapshot", map[string]interface{}{
			"user_id":    client.UserID,
			"session_id": sessionID,
			"error":      err.Error(),
		})
		return
	}
	client.Deliver(data)
}

// RegisterRoutes registers the stream routes.
func (h *StreamHandler) RegisterRoutes(router fiber.Router) {
	stream := router.Group("/stream/v1")
	stream.Get("/ws", h.ServeWs)
}
