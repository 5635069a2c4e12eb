package http

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/escrowdesk/backend/internal/config"
	"github.com/escrowdesk/backend/internal/http/handlers"
	"github.com/escrowdesk/backend/internal/middleware"
)

func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	authHandler *handlers.AuthHandler,
	actorHandler *handlers.ActorHandler,
	dealHandler *handlers.DealHandler,
	adminHandler *handlers.AdminHandler,
	wsHub *handlers.WSHub,
) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api/v1")

	// Auth (public)
	api.Post("/auth/telegram", authHandler.TelegramAuth)

	// Rate-limited endpoints
	api.Use(middleware.RateLimitMiddleware(rdb, 100, time.Minute))

	// Protected endpoints
	protected := api.Group("", middleware.AuthMiddleware(cfg, log))

	// Actor
	protected.Get("/me", actorHandler.GetMe)
	protected.Get("/me/stats", actorHandler.GetStats)
	protected.Post("/me/ping", actorHandler.Ping)

	// Payment methods (static reference data)
	protected.Get("/payment-methods", dealHandler.PaymentMethods)

	// Deals
	protected.Post("/deals", dealHandler.CreateDeal)
	protected.Get("/deals", dealHandler.ListDeals)
	protected.Get("/deals/:id", dealHandler.GetDeal)
	protected.Post("/deals/:id/join", dealHandler.JoinDeal)
	protected.Post("/deals/:id/payment-method", dealHandler.SelectPayment)
	protected.Post("/deals/:id/complete", dealHandler.CompleteDeal)
	protected.Post("/deals/:id/cancel", dealHandler.CancelDeal)
	protected.Get("/deals/:id/events", dealHandler.GetDealEvents)
	protected.Get("/deals/:id/transactions", dealHandler.GetTransactions)

	// Admin override surface
	admin := protected.Group("/admin", middleware.AdminMiddleware(cfg))
	admin.Get("/deals", adminHandler.ListDeals)
	admin.Post("/deals/:id/force-complete", adminHandler.ForceComplete)
	admin.Post("/deals/:id/force-cancel", adminHandler.ForceCancel)
	admin.Post("/actors/:id/block", adminHandler.BlockActor)
	admin.Post("/actors/:id/unblock", adminHandler.UnblockActor)
	admin.Get("/actors/:id/audit", adminHandler.ActorAudit)
	admin.Post("/broadcast", adminHandler.Broadcast)
	admin.Get("/stats", adminHandler.PlatformStats)
	admin.Get("/stats/daily", adminHandler.DailyStats)

	// WebSocket
	app.Use("/ws", handlers.WSUpgradeMiddleware())
	app.Get("/ws", websocket.New(wsHub.HandleWS))
}
