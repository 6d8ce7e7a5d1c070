package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/splitpay/backend/internal/cache"
	"github.com/splitpay/backend/internal/config"
	"github.com/splitpay/backend/internal/db"
	"github.com/splitpay/backend/internal/events"
	"github.com/splitpay/backend/internal/evm"
	apphttp "github.com/splitpay/backend/internal/http"
	"github.com/splitpay/backend/internal/http/handlers"
	"github.com/splitpay/backend/internal/repositories"
	"github.com/splitpay/backend/internal/services"
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

	// Chain RPC
	chain, err := evm.Dial(ctx, cfg.EVMRPCURL, cfg.USDCTokenAddress, cfg.ChainID, log)
	if err != nil {
		log.Fatal("failed to connect to chain rpc", zap.Error(err))
	}
	defer chain.Close()

	// Repositories
	profileRepo := repositories.NewProfileRepo(pool)
	contactRepo := repositories.NewContactRepo(pool)
	requestRepo := repositories.NewRequestRepo(pool)
	activityRepo := repositories.NewActivityRepo(pool)

	// Events
	publisher := events.NewRedisPublisher(rdb, log)
	subscriber := events.NewRedisSubscriber(rdb, log)

	// Services
	lists := cache.NewListCache(rdb, log)
	lists.InvalidateAll(ctx)
	notifier := services.NewNotifierClient(cfg.NotifyWebhookURL, log)
	profileService := services.NewProfileService(profileRepo, activityRepo, lists, notifier, cfg, log)
	contactService := services.NewContactService(contactRepo, lists, log)
	requestService := services.NewRequestService(requestRepo, contactRepo, activityRepo, lists, rdb, notifier, publisher, cfg, log)
	balanceService := services.NewBalanceService(chain, rdb, cfg, log)

	// Handlers
	authHandler := handlers.NewAuthHandler(profileService, log)
	profileHandler := handlers.NewProfileHandler(profileService, log)
	contactHandler := handlers.NewContactHandler(contactService, profileService, log)
	requestHandler := handlers.NewRequestHandler(requestService, contactService, profileService, log)
	balanceHandler := handlers.NewBalanceHandler(balanceService, log)
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

	apphttp.SetupRouter(app, cfg, log, rdb, authHandler, profileHandler, contactHandler, requestHandler, balanceHandler, wsHub)

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
