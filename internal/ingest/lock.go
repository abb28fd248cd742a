package ingest

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/trailerdeck/trailerdeck/internal/logger"
)

// Locker serializes whole catalog refreshes. Two concurrent runs racing the
// delete-then-insert sequence would interleave destructively, so a run that
// cannot take the lock is rejected instead of queued.
type Locker interface {
	// TryLock returns a release func and true, or nil and false when another
	// run holds the lock.
	TryLock(ctx context.Context) (func(), bool)
}

// NewLocker prefers a Redis advisory lock so the guard holds across
// instances. Without Redis it falls back to an in-process try-lock, which
// only protects a single instance.
func NewLocker(rdb *redis.Client) Locker {
	if rdb != nil {
		return &redisLocker{rdb: rdb}
	}
	return &mutexLocker{}
}

const lockKey = "ingest:lock"

// lockTTL bounds how long a crashed run can wedge the lock.
const lockTTL = 15 * time.Minute

type redisLocker struct {
	rdb *redis.Client

	// fallback guards the run when Redis itself is down. A Redis outage
	// must not make every refresh look like a concurrent run.
	fallback mutexLocker
}

func (l *redisLocker) TryLock(ctx context.Context) (func(), bool) {
	ok, err := l.rdb.SetNX(ctx, lockKey, "1", lockTTL).Result()
	if err != nil {
		slog.Warn("ingest lock: redis unavailable, using in-process lock", logger.Error(err))
		return l.fallback.TryLock(ctx)
	}
	if !ok {
		return nil, false
	}
	return func() {
		l.rdb.Del(context.WithoutCancel(ctx), lockKey)
	}, true
}

type mutexLocker struct {
	mu sync.Mutex
}

func (l *mutexLocker) TryLock(context.Context) (func(), bool) {
	if !l.mu.TryLock() {
		return nil, false
	}
	return l.mu.Unlock, true
}
