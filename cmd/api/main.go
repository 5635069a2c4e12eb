package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/escrowdesk/backend/internal/config"
	"github.com/escrowdesk/backend/internal/db"
	"github.com/escrowdesk/backend/internal/events"
	apphttp "github.com/escrowdesk/backend/internal/http"
	"github.com/escrowdesk/backend/internal/http/handlers"
	"github.com/escrowdesk/backend/internal/payments"
	"github.com/escrowdesk/backend/internal/repositories"
	"github.com/escrowdesk/backend/internal/services"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	// Run migrations
	if err := db.RunMigrations(ctx, pool, "migrations", log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Payment registry (validates deposit addresses at boot)
	methods, err := payments.NewRegistry(cfg.TRC20DepositAddress, cfg.TONDepositAddress)
	if err != nil {
		log.Fatal("invalid payment configuration", zap.Error(err))
	}

	// Repositories
	actorRepo := repositories.NewActorRepo(pool)
	dealRepo := repositories.NewDealRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)
	txRepo := repositories.NewTransactionRepo(pool)

	// Events
	publisher := events.NewRedisPublisher(rdb, log)
	subscriber := events.NewRedisSubscriber(rdb, log)

	// Services
	botClient := services.NewBotClient(cfg.BotInternalURL, cfg.BroadcastCapacity, log)
	escrowService := services.NewEscrowService(actorRepo, dealRepo, auditRepo, txRepo, methods, publisher, cfg, log)
	adminService := services.NewAdminService(escrowService, actorRepo, dealRepo, auditRepo, botClient, publisher, log)

	// Handlers
	authHandler := handlers.NewAuthHandler(escrowService, cfg, log)
	actorHandler := handlers.NewActorHandler(actorRepo, escrowService, log)
	dealHandler := handlers.NewDealHandler(escrowService, cfg, log)
	adminHandler := handlers.NewAdminHandler(adminService, log)
	wsHub := handlers.NewWSHub(cfg, subscriber, log)

	// Start WS hub
	wsHub.Start(ctx)

	// Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	apphttp.SetupRouter(app, cfg, log, rdb, authHandler, actorHandler, dealHandler, adminHandler, wsHub)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
