package infrastructure

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"atendebot/internal/entities"
)

type memLock struct {
	token     string
	expiresAt time.Time
}

// MemoryLockManager is the single-process LockManager used in demo mode
// and tests. Same contract as the redis one: bounded wait, TTL expiry,
// token-checked idempotent release.
type MemoryLockManager struct {
	mu         sync.Mutex
	locks      map[string]memLock
	attempts   int
	retryDelay time.Duration
}

func NewMemoryLockManager() *MemoryLockManager {
	return &MemoryLockManager{
		locks:      make(map[string]memLock),
		attempts:   3,
		retryDelay: 10 * time.Millisecond,
	}
}

func (m *MemoryLockManager) tryAcquire(key, token string, ttl time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if held, exists := m.locks[key]; exists && now.Before(held.expiresAt) {
		return false
	}
	m.locks[key] = memLock{token: token, expiresAt: now.Add(ttl)}
	return true
}

func (m *MemoryLockManager) Acquire(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	for i := 0; i < m.attempts; i++ {
		if m.tryAcquire(key, token, ttl) {
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

func (m *MemoryLockManager) Release(ctx context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if held, exists := m.locks[key]; exists && held.token == token {
		delete(m.locks, key)
	}
	return nil
}
