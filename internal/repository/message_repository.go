package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"atendebot/internal/entities"
)

type MessageRepository struct {
	db *pgxpool.Pool
}

// DailyOutcomes is one row of the analytics rollup.
type DailyOutcomes struct {
	Date    time.Time        `json:"date"`
	Outcome entities.Outcome `json:"outcome"`
	Count   int              `json:"count"`
}

func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

// AppendInbound inserts an inbound turn. Reports false when the
// channel message id was already recorded, which is how redelivered
// transport events are suppressed.
func (r *MessageRepository) AppendInbound(ctx context.Context, m *entities.Message) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO messages (id, tenant_id, user_id, session_id, direction, content, created_at,
			intent_detected, confidence, decision_method, outcome, channel_message_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (tenant_id, channel_message_id)
			WHERE channel_message_id IS NOT NULL AND channel_message_id <> ''
		DO NOTHING
	`, m.ID, m.TenantID, m.UserID, m.SessionID, m.Direction, m.Content, m.CreatedAt,
		m.IntentDetected, m.Confidence, m.DecisionMethod, m.Outcome, nullable(m.ChannelMessageID))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Append inserts an outbound turn.
func (r *MessageRepository) Append(ctx context.Context, m *entities.Message) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO messages (id, tenant_id, user_id, session_id, direction, content, created_at,
			intent_detected, confidence, decision_method, outcome, channel_message_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, m.ID, m.TenantID, m.UserID, m.SessionID, m.Direction, m.Content, m.CreatedAt,
		m.IntentDetected, m.Confidence, m.DecisionMethod, m.Outcome, nullable(m.ChannelMessageID))
	return err
}

// Seen reports whether an inbound channel message id was already
// persisted for the tenant.
func (r *MessageRepository) Seen(ctx context.Context, tenantID, channelMessageID string) (bool, error) {
	if channelMessageID == "" {
		return false, nil
	}
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM messages WHERE tenant_id=$1 AND channel_message_id=$2
		)
	`, tenantID, channelMessageID).Scan(&exists)
	return exists, err
}

// History returns the most recent turns of one session, newest first.
func (r *MessageRepository) History(ctx context.Context, tenantID string, sessionID uuid.UUID, limit int) ([]entities.Message, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, tenant_id, user_id, session_id, direction, content, created_at,
			intent_detected, confidence, decision_method, outcome, COALESCE(channel_message_id, '')
		FROM messages
		WHERE tenant_id=$1 AND session_id=$2
		ORDER BY created_at DESC
		LIMIT $3
	`, tenantID, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []entities.Message{}
	for rows.Next() {
		var m entities.Message
		if err := rows.Scan(&m.ID, &m.TenantID, &m.UserID, &m.SessionID, &m.Direction, &m.Content, &m.CreatedAt,
			&m.IntentDetected, &m.Confidence, &m.DecisionMethod, &m.Outcome, &m.ChannelMessageID); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// OutcomeCounts returns per-day outcome totals over the last N days for
// the analytics dashboard.
func (r *MessageRepository) OutcomeCounts(ctx context.Context, tenantID string, days int) ([]DailyOutcomes, error) {
	startDate := time.Now().AddDate(0, 0, -days)
	rows, err := r.db.Query(ctx, `
		SELECT date_trunc('day', created_at) AS day, outcome, COUNT(*)
		FROM messages
		WHERE tenant_id=$1 AND outcome IS NOT NULL AND created_at >= $2
		GROUP BY day, outcome
		ORDER BY day ASC
	`, tenantID, startDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := []DailyOutcomes{}
	for rows.Next() {
		var c DailyOutcomes
		if err := rows.Scan(&c.Date, &c.Outcome, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// nullable maps "" to NULL so the partial dedup index only sees real ids.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
