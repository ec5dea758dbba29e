package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/avelor/levelbot/internal/config"
	"github.com/redis/go-redis/v9"
)

// LeaderboardCache mirrors per-guild lifetime XP in a Redis sorted set
// so the leaderboard command does not rank in Postgres on every call.
// The database stays the source of truth; a cache miss falls back to it.
type LeaderboardCache struct {
	client *redis.Client
}

// Entry is one cached leaderboard row.
type Entry struct {
	UserID  string
	TotalXP int64
}

func NewLeaderboardCache(cfg *config.Config) (*LeaderboardCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &LeaderboardCache{client: client}, nil
}

func guildKey(guildID string) string {
	return "levelbot:lb:" + guildID
}

// SetScore writes a member's lifetime XP into the guild's sorted set.
func (c *LeaderboardCache) SetScore(guildID, userID string, totalXP int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	return c.client.ZAdd(ctx, guildKey(guildID), redis.Z{
		Score:  float64(totalXP),
		Member: userID,
	}).Err()
}

// Top returns the guild's highest-XP members, best first.
func (c *LeaderboardCache) Top(guildID string, limit int) ([]Entry, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	results, err := c.client.ZRevRangeWithScores(ctx, guildKey(guildID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(results))
	for _, z := range results {
		userID, ok := z.Member.(string)
		if !ok {
			continue
		}
		entries = append(entries, Entry{UserID: userID, TotalXP: int64(z.Score)})
	}

	return entries, nil
}

// Rank returns a member's 1-based position, or 0 if not cached.
func (c *LeaderboardCache) Rank(guildID, userID string) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	rank, err := c.client.ZRevRank(ctx, guildKey(guildID), userID).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return int(rank) + 1, nil
}

// Close releases the Redis connection.
func (c *LeaderboardCache) Close() error {
	return c.client.Close()
}
