package interfaces

import (
	"context"
	"time"

	"atendebot/internal/entities"
)

// FallbackClassifier is the external probabilistic classifier consulted
// when the regex fast path is inconclusive. Implementations must only
// return allow-listed intents; the orchestration side validates anyway.
type FallbackClassifier interface {
	Classify(ctx context.Context, text string) (entities.IntentResult, error)
}

// DomainAction executes booking/cancel/reschedule/confirm against the
// external scheduling engine.
type DomainAction interface {
	Execute(ctx context.Context, req entities.ActionRequest) (entities.ActionResult, error)
}

// SessionStore is CRUD over conversation sessions keyed by (tenant, user).
// Get returns (nil, nil) when no session exists yet.
type SessionStore interface {
	Get(ctx context.Context, tenantID, userID string) (*entities.ConversationSession, error)
	Save(ctx context.Context, s *entities.ConversationSession) error
	ListExpired(ctx context.Context, now time.Time, limit int) ([]entities.ConversationSession, error)
}

// MessageStore is the append-only conversation log. AppendInbound
// reports false when the channel message id was already recorded
// (transport redelivery); Seen answers the same question without
// writing, so a redelivered event can be dropped before any domain
// action runs.
type MessageStore interface {
	AppendInbound(ctx context.Context, m *entities.Message) (bool, error)
	Append(ctx context.Context, m *entities.Message) error
	Seen(ctx context.Context, tenantID, channelMessageID string) (bool, error)
}

// LockManager is the distributed mutual-exclusion primitive keyed by
// session. Acquire returns entities.ErrFlowBusy when the bounded wait
// runs out; Release is idempotent, releasing an expired or already
// released lock is not an error.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (string, error)
	Release(ctx context.Context, key, token string) error
}

// ReplyMessenger pushes system-generated messages (watchdog reminders,
// closing pings) back to the user over the channel transport.
type ReplyMessenger interface {
	SendReply(ctx context.Context, tenantID, userID, body string) error
}

// ConfigStore reads tenant-level reply configuration. A missing key
// returns ("", nil) so callers fall back to built-in defaults.
type ConfigStore interface {
	GetConfig(ctx context.Context, schemaName, key string) (string, error)
}
