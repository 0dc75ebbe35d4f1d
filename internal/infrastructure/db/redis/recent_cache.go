package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mini-ai-studio/studio-api/internal/core/domain"
)

const (
	DefaultRecentTTL = 60 * time.Second

	minVersionTTL = 24 * time.Hour
)

// RecentCache holds each user's recent-generations list in Redis.
// Keys: recent:<user_id> for the list, recent:ver:<user_id> for its version.
type RecentCache struct {
	client     *redis.Client
	ttl        time.Duration
	versionTTL time.Duration
}

// NewRecentCache creates a RecentCache wrapping the given Redis client.
func NewRecentCache(client *redis.Client, ttl time.Duration) *RecentCache {
	if ttl <= 0 {
		ttl = DefaultRecentTTL
	}
	versionTTL := minVersionTTL
	if 2*ttl > versionTTL {
		versionTTL = 2 * ttl
	}
	return &RecentCache{client: client, ttl: ttl, versionTTL: versionTTL}
}

type cachedRecent struct {
	Version int64              `json:"version"`
	Items   []cachedGeneration `json:"items"`
}

type cachedGeneration struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Prompt    string    `json:"prompt"`
	ImagePath string    `json:"image_path"`
	CreatedAt time.Time `json:"created_at"`
}

// Get reports a miss with ok=false; err is set only when Redis itself failed.
// An entry written under an older version counts as a miss.
func (c *RecentCache) Get(ctx context.Context, userID string) ([]domain.Generation, int64, bool, error) {
	var verCmd, listCmd *redis.StringCmd
	_, err := c.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		verCmd = p.Get(ctx, versionKey(userID))
		listCmd = p.Get(ctx, recentKey(userID))
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, false, fmt.Errorf("recent cache get: %w", err)
	}

	version, err := verCmd.Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, false, fmt.Errorf("recent cache version: %w", err)
	}

	raw, err := listCmd.Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, version, false, nil
	}
	if err != nil {
		return nil, 0, false, fmt.Errorf("recent cache get: %w", err)
	}

	entryVersion, items, err := decodeRecent(raw)
	if err != nil {
		return nil, 0, false, err
	}
	if entryVersion != version {
		return nil, version, false, nil
	}
	return items, version, true, nil
}

func (c *RecentCache) Set(ctx context.Context, userID string, version int64, items []domain.Generation) error {
	raw, err := encodeRecent(version, items)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, recentKey(userID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("recent cache set: %w", err)
	}
	return nil
}

// Invalidate advances the version and drops the cached list in one
// transaction.
func (c *RecentCache) Invalidate(ctx context.Context, userID string) error {
	_, err := c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, versionKey(userID))
		p.Expire(ctx, versionKey(userID), c.versionTTL)
		p.Del(ctx, recentKey(userID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("recent cache invalidate: %w", err)
	}
	return nil
}

func versionKey(userID string) string {
	return "recent:ver:" + userID
}

func recentKey(userID string) string {
	return "recent:" + userID
}

func encodeRecent(version int64, items []domain.Generation) ([]byte, error) {
	out := cachedRecent{Version: version, Items: make([]cachedGeneration, len(items))}
	for i, g := range items {
		out.Items[i] = cachedGeneration{
			ID:        g.ID,
			UserID:    g.UserID,
			Prompt:    g.Prompt,
			ImagePath: g.ImagePath,
			CreatedAt: g.CreatedAt,
		}
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("recent cache encode: %w", err)
	}
	return raw, nil
}

func decodeRecent(raw []byte) (int64, []domain.Generation, error) {
	var in cachedRecent
	if err := json.Unmarshal(raw, &in); err != nil {
		return 0, nil, fmt.Errorf("recent cache decode: %w", err)
	}
	out := make([]domain.Generation, len(in.Items))
	for i, g := range in.Items {
		out[i] = domain.Generation{
			ID:        g.ID,
			UserID:    g.UserID,
			Prompt:    g.Prompt,
			ImagePath: g.ImagePath,
			CreatedAt: g.CreatedAt,
		}
	}
	return in.Version, out, nil
}
