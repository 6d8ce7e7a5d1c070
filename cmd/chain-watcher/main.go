package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/splitpay/backend/internal/cache"
	"github.com/splitpay/backend/internal/config"
	"github.com/splitpay/backend/internal/db"
	"github.com/splitpay/backend/internal/events"
	"github.com/splitpay/backend/internal/evm"
	"github.com/splitpay/backend/internal/repositories"
	"github.com/splitpay/backend/internal/services"
)

// The watcher polls receipts for transaction hashes the API registered in
// redis. Once a transfer reaches the required confirmation depth, the
// matching request transitions to paid; failed transactions are dropped
// from the watch set so the request can be retried with a new tx.

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

	chain, err := evm.Dial(ctx, cfg.EVMRPCURL, cfg.USDCTokenAddress, cfg.ChainID, log)
	if err != nil {
		log.Fatal("failed to connect to chain rpc", zap.Error(err))
	}
	defer chain.Close()

	contactRepo := repositories.NewContactRepo(pool)
	requestRepo := repositories.NewRequestRepo(pool)
	activityRepo := repositories.NewActivityRepo(pool)

	publisher := events.NewRedisPublisher(rdb, log)
	lists := cache.NewListCache(rdb, log)
	notifier := services.NewNotifierClient(cfg.NotifyWebhookURL, log)
	requestService := services.NewRequestService(requestRepo, contactRepo, activityRepo, lists, rdb, notifier, publisher, cfg, log)

	log.Info("chain watcher started",
		zap.Int64("chain_id", chain.ChainID()),
		zap.String("token", chain.TokenAddress()),
		zap.Uint64("confirmations", cfg.ConfirmationsRequired),
	)

	ticker := time.NewTicker(cfg.WatcherPollInterval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			sweep(ctx, rdb, chain, requestService, cfg, log)
		case <-sigCh:
			log.Info("shutting down chain watcher")
			cancel()
			return
		case <-ctx.Done():
			return
		}
	}
}

func sweep(ctx context.Context, rdb *redis.Client, chain *evm.Client, requestService *services.RequestService, cfg *config.Config, log *zap.Logger) {
	hashes, err := rdb.SMembers(ctx, services.WatchSetKey).Result()
	if err != nil {
		log.Error("failed to read watch set", zap.Error(err))
		return
	}

	for _, hash := range hashes {
		status, err := chain.CheckTx(ctx, hash)
		if err != nil {
			log.Warn("receipt check failed", zap.String("tx_hash", hash), zap.Error(err))
			continue
		}

		switch status.State {
		case evm.TxPending:
			continue
		case evm.TxFailed:
			log.Warn("watched transaction reverted", zap.String("tx_hash", hash))
			dropWatch(ctx, rdb, hash)
		case evm.TxSuccess:
			if status.Confirmations < cfg.ConfirmationsRequired {
				continue
			}
			confirm(ctx, rdb, requestService, hash, log)
		}
	}
}

func confirm(ctx context.Context, rdb *redis.Client, requestService *services.RequestService, hash string, log *zap.Logger) {
	idStr, err := rdb.Get(ctx, services.WatchTxKey+hash).Result()
	if err != nil {
		// Mapping expired or already consumed; nothing left to confirm.
		dropWatch(ctx, rdb, hash)
		return
	}
	requestID, err := uuid.Parse(idStr)
	if err != nil {
		log.Error("corrupt watch entry", zap.String("tx_hash", hash), zap.String("value", idStr))
		dropWatch(ctx, rdb, hash)
		return
	}

	if err := requestService.ConfirmPaid(ctx, requestID, hash); err != nil {
		log.Error("failed to confirm payment",
			zap.String("request_id", requestID.String()),
			zap.String("tx_hash", hash),
			zap.Error(err),
		)
		return
	}
	log.Info("payment confirmed",
		zap.String("request_id", requestID.String()),
		zap.String("tx_hash", hash),
	)
}

func dropWatch(ctx context.Context, rdb *redis.Client, hash string) {
	pipe := rdb.Pipeline()
	pipe.SRem(ctx, services.WatchSetKey, hash)
	pipe.Del(ctx, services.WatchTxKey+hash)
	_, _ = pipe.Exec(ctx)
}
