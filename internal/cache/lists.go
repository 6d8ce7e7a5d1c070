package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/splitpay/backend/internal/models"
	"go.uber.org/zap"
)

const (
	keyPrefix = "splitpay:lists:"

	// MaxCachedItems caps each cached list, most-recent-first.
	MaxCachedItems = 20

	// Snapshots are advisory; let them age out on their own.
	snapshotTTL = 24 * time.Hour
)

// ListCache stores the most recently fetched contact and request lists per
// wallet. It is never authoritative: reads hydrate the response instantly
// while the Postgres refresh runs, and a failed refresh leaves the stale
// snapshot readable instead of erroring.
type ListCache struct {
	rdb *redis.Client
	log *zap.Logger
}

func NewListCache(rdb *redis.Client, log *zap.Logger) *ListCache {
	return &ListCache{rdb: rdb, log: log}
}

func contactsKey(wallet string) string {
	return keyPrefix + "contacts:" + strings.ToLower(wallet)
}

func historyKey(wallet string) string {
	return keyPrefix + "history:" + strings.ToLower(wallet)
}

// GetContacts returns the cached contact snapshot, or ok=false on a miss.
func (c *ListCache) GetContacts(ctx context.Context, wallet string) ([]models.Contact, bool) {
	var contacts []models.Contact
	if !c.get(ctx, contactsKey(wallet), &contacts) {
		return nil, false
	}
	return contacts, true
}

// SetContacts persists the latest server response, capped at MaxCachedItems.
func (c *ListCache) SetContacts(ctx context.Context, wallet string, contacts []models.Contact) {
	if len(contacts) > MaxCachedItems {
		contacts = contacts[:MaxCachedItems]
	}
	c.set(ctx, contactsKey(wallet), contacts)
}

// GetHistory returns the cached merged history snapshot, or ok=false.
func (c *ListCache) GetHistory(ctx context.Context, wallet string) ([]models.HistoryEntry, bool) {
	var entries []models.HistoryEntry
	if !c.get(ctx, historyKey(wallet), &entries) {
		return nil, false
	}
	return entries, true
}

func (c *ListCache) SetHistory(ctx context.Context, wallet string, entries []models.HistoryEntry) {
	if len(entries) > MaxCachedItems {
		entries = entries[:MaxCachedItems]
	}
	c.set(ctx, historyKey(wallet), entries)
}

// InvalidateWallet drops both snapshots for one wallet.
func (c *ListCache) InvalidateWallet(ctx context.Context, wallet string) {
	if err := c.rdb.Del(ctx, contactsKey(wallet), historyKey(wallet)).Err(); err != nil {
		c.log.Warn("cache invalidate failed", zap.String("wallet", wallet), zap.Error(err))
	}
}

// InvalidateAll clears every cached list for every wallet. Run at API
// startup so snapshots written by an older build never leak into responses.
func (c *ListCache) InvalidateAll(ctx context.Context) {
	var cursor uint64
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, keyPrefix+"*", 200).Result()
		if err != nil {
			c.log.Warn("cache scan failed", zap.Error(err))
			return
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				c.log.Warn("cache invalidate-all failed", zap.Error(err))
				return
			}
		}
		cursor = next
		if cursor == 0 {
			return
		}
	}
}

func (c *ListCache) get(ctx context.Context, key string, dest any) bool {
	val, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		return false // miss or redis down: both are just a miss
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		c.log.Warn("corrupt cache entry, dropping", zap.String("key", key), zap.Error(err))
		c.rdb.Del(ctx, key)
		return false
	}
	return true
}

func (c *ListCache) set(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		c.log.Warn("cache marshal failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.rdb.Set(ctx, key, data, snapshotTTL).Err(); err != nil {
		c.log.Warn(fmt.Sprintf("cache write failed for %s", key), zap.Error(err))
	}
}
