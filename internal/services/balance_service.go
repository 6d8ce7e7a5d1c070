package services

import (
	"context"
	"fmt"
	"math/big"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/splitpay/backend/internal/config"
	"github.com/splitpay/backend/internal/evm"
	"github.com/splitpay/backend/internal/validate"
)

const balanceKeyPrefix = "splitpay:balance:"

// Balance is a token balance snapshot for one wallet.
type Balance struct {
	Wallet    string `json:"wallet"`
	Raw       string `json:"raw"`       // base units as a decimal string
	Formatted string `json:"formatted"` // whole USDC, two decimal places
	ChainID   int64  `json:"chain_id"`
}

// BalanceService reads USDC balances from the chain with a short redis
// cache in front, matching the client's polling cadence so repeated reads
// within one interval hit the cache instead of the RPC.
type BalanceService struct {
	chain *evm.Client
	rdb   *redis.Client
	cfg   *config.Config
	log   *zap.Logger
}

func NewBalanceService(chain *evm.Client, rdb *redis.Client, cfg *config.Config, log *zap.Logger) *BalanceService {
	return &BalanceService{chain: chain, rdb: rdb, cfg: cfg, log: log}
}

// Get returns the wallet's balance, served from cache when a snapshot
// younger than the poll interval exists.
func (s *BalanceService) Get(ctx context.Context, rawAddress string) (*Balance, error) {
	wallet, err := validate.NormalizeAddress(rawAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid address: %w", err)
	}

	if cached, err := s.rdb.Get(ctx, balanceKeyPrefix+wallet).Result(); err == nil {
		if raw, ok := new(big.Int).SetString(cached, 10); ok {
			return s.snapshot(wallet, raw), nil
		}
	}
	return s.fetch(ctx, wallet)
}

// Refresh bypasses the cache and reads the balance from the chain.
func (s *BalanceService) Refresh(ctx context.Context, rawAddress string) (*Balance, error) {
	wallet, err := validate.NormalizeAddress(rawAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid address: %w", err)
	}
	return s.fetch(ctx, wallet)
}

func (s *BalanceService) fetch(ctx context.Context, wallet string) (*Balance, error) {
	raw, err := s.chain.BalanceOf(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("balance read: %w", err)
	}
	if err := s.rdb.Set(ctx, balanceKeyPrefix+wallet, raw.String(), s.cfg.BalancePollInterval).Err(); err != nil {
		s.log.Warn("balance cache write failed", zap.Error(err))
	}
	return s.snapshot(wallet, raw), nil
}

func (s *BalanceService) snapshot(wallet string, raw *big.Int) *Balance {
	return &Balance{
		Wallet:    wallet,
		Raw:       raw.String(),
		Formatted: evm.FormatAmount(raw),
		ChainID:   s.chain.ChainID(),
	}
}
