package main

import (
	"context"
	"log"

	"constitution-chat-be/internal/bootstrap"
	"constitution-chat-be/internal/config"
	"constitution-chat-be/internal/server"
	"constitution-chat-be/internal/tracer"
	"constitution-chat-be/pkg/database"
)

func main() {
	// 1. Initialize Tracer (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 2. Load Configuration
	cfg := config.Load()

	// 3. Initialize Database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 4. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)

	// 5. Start Background Services
	if err := container.SyncService.Start(context.Background()); err != nil {
		log.Printf("Background: Sync service failed to start: %v", err)
	}
	if container.EventMonitor != nil {
		go container.EventMonitor.Start()
	}

	// 6. Initialize Server
	srv := server.New(cfg, container)

	// 7. Run Server
	log.Fatal(srv.Run())
}
