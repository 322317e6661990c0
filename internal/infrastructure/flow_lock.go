package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"atendebot/internal/entities"
)

// releaseScript deletes the lock only when the caller still holds it.
// Releasing somebody else's lock (ours expired and was re-acquired)
// must be a no-op.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLockManager serializes orchestration per session across all
// workers. SET NX PX gives at most one unexpired holder per key; the
// TTL bounds how long a crashed worker can wedge a session.
type RedisLockManager struct {
	rdb        *redis.Client
	attempts   int
	retryDelay time.Duration
}

func NewRedisLockManager(rdb *redis.Client) *RedisLockManager {
	return &RedisLockManager{
		rdb:        rdb,
		attempts:   3,
		retryDelay: 150 * time.Millisecond,
	}
}

func lockKey(sessionKey string) string {
	return "flowlock:" + sessionKey
}

// Acquire tries a few times within a bounded wait, then reports busy.
// Nothing is mutated on a failed acquire.
func (m *RedisLockManager) Acquire(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	for i := 0; i < m.attempts; i++ {
		ok, err := m.rdb.SetNX(ctx, lockKey(key), token, ttl).Result()
		if err != nil {
			return "", fmt.Errorf("%w: lock acquire: %v", entities.ErrServiceUnavailable, err)
		}
		if ok {
			return token, nil
		}
		if i == m.attempts-1 {
			break
		}
		select {
		case <-time.After(m.retryDelay):
		case <-ctx.Done():
			return "", entities.ErrFlowBusy
		}
	}
	return "", entities.ErrFlowBusy
}

// Release is idempotent: a lock that already expired or was never held
// simply deletes nothing.
func (m *RedisLockManager) Release(ctx context.Context, key, token string) error {
	return releaseScript.Run(ctx, m.rdb, []string{lockKey(key)}, token).Err()
}
