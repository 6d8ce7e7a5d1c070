package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/splitpay/backend/internal/cache"
	"github.com/splitpay/backend/internal/config"
	"github.com/splitpay/backend/internal/db"
	"github.com/splitpay/backend/internal/events"
	"github.com/splitpay/backend/internal/repositories"
	"github.com/splitpay/backend/internal/services"
)

const expiryBatchSize = 200

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Repos
	contactRepo := repositories.NewContactRepo(pool)
	requestRepo := repositories.NewRequestRepo(pool)
	activityRepo := repositories.NewActivityRepo(pool)

	// Services
	publisher := events.NewRedisPublisher(rdb, log)
	lists := cache.NewListCache(rdb, log)
	notifier := services.NewNotifierClient(cfg.NotifyWebhookURL, log)
	requestService := services.NewRequestService(requestRepo, contactRepo, activityRepo, lists, rdb, notifier, publisher, cfg, log)

	log.Info("worker started", zap.Duration("expiry_sweep_interval", cfg.ExpirySweepInterval))

	expiryTicker := time.NewTicker(cfg.ExpirySweepInterval)
	defer expiryTicker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-expiryTicker.C:
			runExpirySweep(ctx, requestService, log)
		case <-sigCh:
			log.Info("shutting down worker")
			cancel()
			return
		case <-ctx.Done():
			return
		}
	}
}

func runExpirySweep(ctx context.Context, requestService *services.RequestService, log *zap.Logger) {
	expired, err := requestService.ExpireOverdue(ctx, expiryBatchSize)
	if err != nil {
		log.Error("expiry sweep failed", zap.Error(err))
		return
	}
	if expired > 0 {
		log.Info("expired overdue requests", zap.Int("count", expired))
	}
}
