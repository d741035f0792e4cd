package bootstrap

import (
	"context"
	"log"
	"os"
	"path/filepath"

	"constitution-chat-be/internal/config"
	"constitution-chat-be/internal/controller"
	"constitution-chat-be/internal/handler"
	"constitution-chat-be/internal/pkg/logger"
	"constitution-chat-be/internal/pkg/mailer"
	"constitution-chat-be/internal/repository/memory"
	"constitution-chat-be/internal/repository/unitofwork"
	"constitution-chat-be/internal/service"
	"constitution-chat-be/internal/websocket"
	"constitution-chat-be/pkg/ai/agent"
	"constitution-chat-be/pkg/ai/title"
	"constitution-chat-be/pkg/llm/factory"

	pkgnats "constitution-chat-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	AuthController    controller.IAuthController
	OAuthController   controller.IOAuthController
	ChatbotController controller.IChatbotController

	// WebSocket streaming
	StreamHandler *handler.StreamHandler
	WebSocketHub  *websocket.Hub

	// Background services (exposed for main.go)
	SyncService  *service.SyncService
	EventMonitor *service.EventMonitorService
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	emailService := mailer.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
		cfg.SMTP.SenderName,
	)

	// 2. In-process change feed
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. Completion provider
	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.ProviderBaseURL(),
		cfg.ProviderKey(),
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	llmLogger := initLLMLogger()
	chatAgent := agent.NewAgent(llmProvider, llmLogger)
	titleGenerator := title.NewGenerator(llmProvider, llmLogger)

	// 4. Infrastructure
	flightRepo := memory.NewFlightRepository()

	natsPub, err := pkgnats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pkgnats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}

	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	// WebSocket hub on its own log file to keep the main log readable
	wsLogger := logger.NewIsolatedLogger("logs/stream.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	// 5. Services
	chatService := service.NewChatService(
		uowFactory,
		chatAgent,
		titleGenerator,
		flightRepo,
		pubSub,
		natsPub,
		sysLogger,
	)
	syncService := service.NewSyncService(uowFactory, pubSub, wsHub, wsLogger)
	authService := service.NewAuthService(uowFactory, emailService, natsPub)
	oauthService := service.NewOAuthService(uowFactory)

	var eventMonitor *service.EventMonitorService
	if natsSub != nil {
		eventMonitor = service.NewEventMonitorService(natsSub, sysLogger)
	}

	// 6. Handlers & controllers
	streamHandler := handler.NewStreamHandler(syncService, wsHub, wsLogger)

	return &Container{
		AuthController:    controller.NewAuthController(authService),
		OAuthController:   controller.NewOAuthController(oauthService),
		ChatbotController: controller.NewChatbotController(chatService, sysLogger),

		StreamHandler: streamHandler,
		WebSocketHub:  wsHub,

		SyncService:  syncService,
		EventMonitor: eventMonitor,
	}
}

func initLLMLogger() *log.Logger {
	logPath := filepath.Join(".", "logs", "llm.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		log.Printf("Failed to create logs directory: %v", err)
	}
	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return log.New(os.Stdout, "[LLM] ", log.LstdFlags)
	}
	return log.New(file, "", log.LstdFlags)
}
