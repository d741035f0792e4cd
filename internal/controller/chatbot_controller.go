package controller

import (
	"errors"

	"constitution-chat-be/internal/constant"
	"constitution-chat-be/internal/dto"
	"constitution-chat-be/internal/pkg/logger"
	"constitution-chat-be/internal/pkg/serverutils"
	"constitution-chat-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IChatbotController interface {
	RegisterRoutes(r fiber.Router)
	RegisterPublicRoutes(app *fiber.App)
	CreateSession(ctx *fiber.Ctx) error
	GetAllSessions(ctx *fiber.Ctx) error
	GetChatHistory(ctx *fiber.Ctx) error
	SendChat(ctx *fiber.Ctx) error
	DeleteSession(ctx *fiber.Ctx) error
	Complete(ctx *fiber.Ctx) error
}

type chatbotController struct {
	chatService service.IChatService
	logger      logger.ILogger
}

func NewChatbotController(chatService service.IChatService, log logger.ILogger) IChatbotController {
	return &chatbotController{
		chatService: chatService,
		logger:      log,
	}
}

func (c *chatbotController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chatbot/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("/session", c.CreateSession)
	h.Get("/sessions", c.GetAllSessions)
	h.Get("/session/:id/history", c.GetChatHistory)
	h.Post("/chat", c.SendChat)
	h.Delete("/session/:id", c.DeleteSession)
}

// RegisterPublicRoutes mounts the unauthenticated completion relay. It exists
// so provider credentials never reach the client; raw JSON in and out, no
// response envelope.
func (c *chatbotController) RegisterPublicRoutes(app *fiber.App) {
	app.Post("/chat", c.Complete)
}

func (c *chatbotController) CreateSession(ctx *fiber.Ctx) error {
	userId, err := currentUserId(ctx)
	if err != nil {
		return err
	}

	res, err := c.chatService.CreateSession(ctx.Context(), userId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Session created", res))
}

func (c *chatbotController) GetAllSessions(ctx *fiber.Ctx) error {
	userId, err := currentUserId(ctx)
	if err != nil {
		return err
	}

	res, err := c.chatService.GetAllSessions(ctx.Context(), userId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Sessions", res))
}

func (c *chatbotController) GetChatHistory(ctx *fiber.Ctx) error {
	userId, err := currentUserId(ctx)
	if err != nil {
		return err
	}

	sessionId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid session id"))
	}

	res, err := c.chatService.GetChatHistory(ctx.Context(), userId, sessionId)
	if err != nil {
		return c.mapServiceError(ctx, err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Chat history", res))
}

func (c *chatbotController) SendChat(ctx *fiber.Ctx) error {
	userId, err := currentUserId(ctx)
	if err != nil {
		return err
	}

	var req dto.SendChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	}

	res, err := c.chatService.SendChat(ctx.Context(), userId, &req)
	if err != nil {
		return c.mapServiceError(ctx, err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Message sent", res))
}

func (c *chatbotController) DeleteSession(ctx *fiber.Ctx) error {
	userId, err := currentUserId(ctx)
	if err != nil {
		return err
	}

	sessionId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid session id"))
	}

	if err := c.chatService.DeleteSession(ctx.Context(), userId, sessionId); err != nil {
		return c.mapServiceError(ctx, err)
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Session deleted", nil))
}

// Complete handles the public POST /chat relay. Provider failures collapse to
// the fixed apology string with a 200, clients treat that text as the reply.
func (c *chatbotController) Complete(ctx *fiber.Ctx) error {
	var req dto.CompletionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid request body"})
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	reply, err := c.chatService.Complete(ctx.Context(), req.Message)
	if err != nil {
		c.logger.Warn("ChatbotController", "Completion relay falling back", map[string]interface{}{"error": err.Error()})
		reply = constant.CompletionFallbackReply
	}

	return ctx.JSON(dto.CompletionResponse{Reply: reply})
}

func (c *chatbotController) mapServiceError(ctx *fiber.Ctx, err error) error {
	var compErr *service.CompletionError
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(404, err.Error()))
	case errors.Is(err, service.ErrEmptyMessage):
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	case errors.Is(err, service.ErrSendInFlight), errors.Is(err, service.ErrDeleteInFlight):
		return ctx.Status(fiber.StatusConflict).JSON(serverutils.ErrorResponse(409, err.Error()))
	case errors.As(err, &compErr):
		// The user message is already persisted; the client restores the
		// composer text and may retry.
		return ctx.Status(fiber.StatusBadGateway).JSON(serverutils.ErrorResponse(502, "The assistant is unavailable right now. Your message was saved."))
	default:
		return err
	}
}

func currentUserId(ctx *fiber.Ctx) (uuid.UUID, error) {
	userIdStr, _ := ctx.Locals("user_id").(string)
	userId, err := uuid.Parse(userIdStr)
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
	}
	return userId, nil
}
