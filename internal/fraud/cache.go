package fraud

import (
	"context"
	"fmt"
	"time"

	redisclient "github.com/richxcame/claims-fraud/pkg/redis"
)

const liveScoreKeyPrefix = "fraud:live_score:"

// RedisScoreCache stores live scores in Redis
type RedisScoreCache struct {
	client *redisclient.Client
}

var _ ScoreCache = (*RedisScoreCache)(nil)

// NewRedisScoreCache creates a live score cache on client
func NewRedisScoreCache(client *redisclient.Client) *RedisScoreCache {
	return &RedisScoreCache{client: client}
}

// Get implements ScoreCache
func (c *RedisScoreCache) Get(ctx context.Context, insuredID int64) (*LiveScore, bool, error) {
	var score LiveScore
	found, err := c.client.GetJSON(ctx, liveScoreKey(insuredID), &score)
	if err != nil || !found {
		return nil, false, err
	}
	return &score, true, nil
}

// Set implements ScoreCache
func (c *RedisScoreCache) Set(ctx context.Context, score *LiveScore, ttl time.Duration) error {
	return c.client.SetJSON(ctx, liveScoreKey(score.InsuredID), score, ttl)
}

// Invalidate implements ScoreCache
func (c *RedisScoreCache) Invalidate(ctx context.Context, insuredIDs ...int64) error {
	keys := make([]string, len(insuredIDs))
	for i, id := range insuredIDs {
		keys[i] = liveScoreKey(id)
	}
	return c.client.Delete(ctx, keys...)
}

func liveScoreKey(insuredID int64) string {
	return fmt.Sprintf("%s%d", liveScoreKeyPrefix, insuredID)
}
