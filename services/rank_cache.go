// services/rank_cache.go
package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/growvest/growvest_backend/models"
)

// RankCache memoizes per-user rank-period aggregates in Redis. A rank check
// is a depth-8 graph walk plus a ledger scan per descendant, so routine
// rank-status requests would otherwise hammer the store. Entries are
// dropped whenever an approved transaction lands anywhere in the user's
// subtree (deposit approval invalidates every ancestor of the depositor).
//
// The cache degrades to a no-op when Redis is unavailable.
type RankCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRankCache(client *redis.Client, ttl time.Duration) *RankCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RankCache{client: client, ttl: ttl}
}

func rankInfoKey(userID primitive.ObjectID) string {
	return "rankinfo:" + userID.Hex()
}

// Get returns the cached rank info for the user, or nil on miss.
func (c *RankCache) Get(ctx context.Context, userID primitive.ObjectID) *models.RankInfo {
	if c == nil || c.client == nil {
		return nil
	}
	raw, err := c.client.Get(ctx, rankInfoKey(userID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("rank cache read failed for %s: %v", userID.Hex(), err)
		}
		return nil
	}
	var info models.RankInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		log.Printf("rank cache entry for %s is corrupt, dropping: %v", userID.Hex(), err)
		c.Invalidate(ctx, userID)
		return nil
	}
	return &info
}

// Set stores the rank info with the cache TTL.
func (c *RankCache) Set(ctx context.Context, userID primitive.ObjectID, info *models.RankInfo) {
	if c == nil || c.client == nil || info == nil {
		return
	}
	raw, err := json.Marshal(info)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, rankInfoKey(userID), raw, c.ttl).Err(); err != nil {
		log.Printf("rank cache write failed for %s: %v", userID.Hex(), err)
	}
}

// Invalidate drops cached aggregates for the given users.
func (c *RankCache) Invalidate(ctx context.Context, userIDs ...primitive.ObjectID) {
	if c == nil || c.client == nil || len(userIDs) == 0 {
		return
	}
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, rankInfoKey(id))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		log.Printf("rank cache invalidation failed: %v", err)
	}
}
