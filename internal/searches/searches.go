// Package searches keeps a small per-user list of recent search terms in
// Redis. The list is capped, most-recent-first and deduplicated by exact
// text. Without a Redis connection every operation degrades to a no-op so the
// rest of the app keeps working.
package searches

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// MaxRecent is the cap on stored search terms per user.
const MaxRecent = 5

const keyPrefix = "recent_searches:"
const entryTTL = 90 * 24 * time.Hour

type Recorder struct {
	rdb *redis.Client
}

// New wraps a Redis client. A nil client is allowed and disables recording.
func New(rdb *redis.Client) *Recorder {
	return &Recorder{rdb: rdb}
}

func (r *Recorder) Enabled() bool { return r != nil && r.rdb != nil }

// Record pushes term to the front of the user's recent list, removing any
// previous occurrence of the exact same text and trimming to MaxRecent.
func (r *Recorder) Record(ctx context.Context, userID, term string) error {
	term = strings.TrimSpace(term)
	if !r.Enabled() || userID == "" || term == "" {
		return nil
	}

	key := keyPrefix + userID
	pipe := r.rdb.TxPipeline()
	pipe.LRem(ctx, key, 0, term)
	pipe.LPush(ctx, key, term)
	pipe.LTrim(ctx, key, 0, MaxRecent-1)
	pipe.Expire(ctx, key, entryTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// Recent returns the user's recent search terms, most recent first.
func (r *Recorder) Recent(ctx context.Context, userID string) ([]string, error) {
	if !r.Enabled() || userID == "" {
		return []string{}, nil
	}
	out, err := r.rdb.LRange(ctx, keyPrefix+userID, 0, MaxRecent-1).Result()
	if err != nil {
		return nil, err
	}
	return out, nil
}

// NewRedisClient connects to REDIS_ADDR (default localhost:6379) with an
// optional REDIS_PASSWORD. It returns nil when the server cannot be reached;
// callers degrade gracefully.
func NewRedisClient(addr, password string) *redis.Client {
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil
	}
	return client
}
