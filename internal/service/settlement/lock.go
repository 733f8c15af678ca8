package settlement

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

//go:generate mockgen -destination=mock_locker_test.go -package=settlement_test skins-service/internal/service/settlement Locker

// Locker keeps two organizers from computing the same round at once. The
// conditional status update is what guarantees a single ledger; the lock only
// turns the loser away early.
type Locker interface {
	Acquire(ctx context.Context, roundID int64) (bool, error)
	Release(ctx context.Context, roundID int64) error
}

// releaseScript deletes the key only while it still holds our token, so an
// expired lock re-taken by someone else is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisLocker struct {
	rdb *redis.Client
	ttl time.Duration

	mu     sync.Mutex
	tokens map[int64]string
}

func NewRedisLocker(rdb *redis.Client, ttl time.Duration) Locker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &redisLocker{rdb: rdb, ttl: ttl, tokens: make(map[int64]string)}
}

func (l *redisLocker) Acquire(ctx context.Context, roundID int64) (bool, error) {
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, buildLockKey(roundID), token, l.ttl).Result()
	if err != nil || !ok {
		return false, err
	}
	l.mu.Lock()
	l.tokens[roundID] = token
	l.mu.Unlock()
	return true, nil
}

func (l *redisLocker) Release(ctx context.Context, roundID int64) error {
	l.mu.Lock()
	token, ok := l.tokens[roundID]
	delete(l.tokens, roundID)
	l.mu.Unlock()
	if !ok {
		return nil
	}
	return releaseScript.Run(ctx, l.rdb, []string{buildLockKey(roundID)}, token).Err()
}

func buildLockKey(roundID int64) string {
	return fmt.Sprintf("settle:lock:%d", roundID)
}
