package http

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/splitpay/backend/internal/config"
	"github.com/splitpay/backend/internal/http/handlers"
	"github.com/splitpay/backend/internal/middleware"
)

func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	authHandler *handlers.AuthHandler,
	profileHandler *handlers.ProfileHandler,
	contactHandler *handlers.ContactHandler,
	requestHandler *handlers.RequestHandler,
	balanceHandler *handlers.BalanceHandler,
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

	// Public
	api.Get("/capabilities", profileHandler.GetCapabilities)
	api.Post("/auth/challenge", authHandler.StartSignIn)
	api.Post("/auth/signin", authHandler.SignIn)

	api.Use(middleware.RateLimitMiddleware(rdb, 100, time.Minute))

	// Protected endpoints
	protected := api.Group("", middleware.AuthMiddleware(cfg, log))

	// Profile
	protected.Get("/me", profileHandler.GetMe)
	protected.Post("/auth/signout", authHandler.SignOut)
	protected.Put("/me/history-filter", profileHandler.UpdateHistoryFilter)
	protected.Get("/profiles/:address", profileHandler.LookupWallet)

	// Balance
	protected.Get("/balance", balanceHandler.GetBalance)
	protected.Post("/balance/refresh", balanceHandler.RefreshBalance)

	// Contacts
	protected.Post("/contacts", contactHandler.CreateContact)
	protected.Get("/contacts", contactHandler.ListContacts)
	protected.Put("/contacts/:id", contactHandler.UpdateContact)
	protected.Delete("/contacts/:id", contactHandler.DeleteContact)

	// Payment requests
	protected.Post("/requests", requestHandler.CreateRequest)
	protected.Get("/requests/incoming", requestHandler.ListIncoming)
	protected.Get("/requests/sent", requestHandler.ListSent)
	protected.Get("/requests/history", requestHandler.GetHistory)
	protected.Get("/requests/:id", requestHandler.GetRequest)
	protected.Get("/requests/:id/payment", requestHandler.GetPaymentInfo)
	protected.Get("/requests/:id/activity", requestHandler.GetActivity)
	protected.Post("/requests/:id/tx", requestHandler.SubmitTx)
	protected.Post("/requests/:id/confirm", requestHandler.ConfirmPaid)
	protected.Post("/requests/:id/cancel", requestHandler.CancelRequest)
	protected.Post("/requests/:id/reject", requestHandler.RejectRequest)

	// Direct transfers (history records)
	protected.Post("/transfers", requestHandler.RecordTransfer)

	// WebSocket
	app.Use("/ws", handlers.WSUpgradeMiddleware())
	app.Get("/ws", websocket.New(wsHub.HandleWS))
}
