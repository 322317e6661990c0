package infrastructure

import (
	"context"
	"sort"
	"sync"
	"time"

	"atendebot/internal/entities"
)

// MemorySessionStore backs demo mode and tests. Same contract as the
// Postgres repository, including (nil, nil) for a missing session.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]entities.ConversationSession
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]entities.ConversationSession)}
}

func pairKey(tenantID, userID string) string {
	return tenantID + ":" + userID
}

func (s *MemorySessionStore) Get(ctx context.Context, tenantID, userID string) (*entities.ConversationSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, exists := s.sessions[pairKey(tenantID, userID)]
	if !exists {
		return nil, nil
	}
	copied := sess
	if sess.ExpiresAt != nil {
		t := *sess.ExpiresAt
		copied.ExpiresAt = &t
	}
	return &copied, nil
}

func (s *MemorySessionStore) Save(ctx context.Context, sess *entities.ConversationSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *sess
	if sess.ExpiresAt != nil {
		t := *sess.ExpiresAt
		stored.ExpiresAt = &t
	}
	s.sessions[pairKey(sess.TenantID, sess.UserID)] = stored
	return nil
}

func (s *MemorySessionStore) ListExpired(ctx context.Context, now time.Time, limit int) ([]entities.ConversationSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expired := []entities.ConversationSession{}
	for _, sess := range s.sessions {
		if sess.ExpiresAt != nil && now.After(*sess.ExpiresAt) {
			copied := sess
			t := *sess.ExpiresAt
			copied.ExpiresAt = &t
			expired = append(expired, copied)
		}
	}
	sort.Slice(expired, func(i, j int) bool {
		return expired[i].ExpiresAt.Before(*expired[j].ExpiresAt)
	})
	if limit > 0 && len(expired) > limit {
		expired = expired[:limit]
	}
	return expired, nil
}

// MemoryMessageStore is the in-process append-only log for demo mode
// and tests.
type MemoryMessageStore struct {
	mu       sync.RWMutex
	messages []entities.Message
	seen     map[string]bool
}

func NewMemoryMessageStore() *MemoryMessageStore {
	return &MemoryMessageStore{seen: make(map[string]bool)}
}

func (s *MemoryMessageStore) AppendInbound(ctx context.Context, m *entities.Message) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.ChannelMessageID != "" {
		key := m.TenantID + ":" + m.ChannelMessageID
		if s.seen[key] {
			return false, nil
		}
		s.seen[key] = true
	}
	s.messages = append(s.messages, *m)
	return true, nil
}

func (s *MemoryMessageStore) Seen(ctx context.Context, tenantID, channelMessageID string) (bool, error) {
	if channelMessageID == "" {
		return false, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seen[tenantID+":"+channelMessageID], nil
}

func (s *MemoryMessageStore) Append(ctx context.Context, m *entities.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, *m)
	return nil
}

// All returns a snapshot of every persisted message, oldest first.
func (s *MemoryMessageStore) All() []entities.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entities.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// MemoryConfigStore holds tenant reply overrides in demo mode.
type MemoryConfigStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryConfigStore() *MemoryConfigStore {
	return &MemoryConfigStore{values: make(map[string]string)}
}

func (s *MemoryConfigStore) GetConfig(ctx context.Context, schemaName, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[schemaName+":"+key], nil
}

func (s *MemoryConfigStore) SetConfig(ctx context.Context, schemaName, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[schemaName+":"+key] = value
	return nil
}
