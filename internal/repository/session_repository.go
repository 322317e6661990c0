package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"atendebot/internal/entities"
)

type SessionRepository struct {
	db *pgxpool.Pool
}

func NewSessionRepository(db *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{db: db}
}

// Get returns the session for a (tenant, user) pair, or (nil, nil) when
// none exists yet.
func (r *SessionRepository) Get(ctx context.Context, tenantID, userID string) (*entities.ConversationSession, error) {
	var s entities.ConversationSession
	err := r.db.QueryRow(ctx, `
		SELECT session_id, tenant_id, user_id, current_state, expires_at, last_activity_at
		FROM sessions WHERE tenant_id=$1 AND user_id=$2
	`, tenantID, userID).Scan(&s.SessionID, &s.TenantID, &s.UserID, &s.CurrentState, &s.ExpiresAt, &s.LastActivityAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// Save upserts the session row. The deterministic session_id keys the
// conflict target, which keeps the one-session-per-pair invariant.
func (r *SessionRepository) Save(ctx context.Context, s *entities.ConversationSession) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO sessions (session_id, tenant_id, user_id, current_state, expires_at, last_activity_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (session_id) DO UPDATE SET
			current_state=EXCLUDED.current_state,
			expires_at=EXCLUDED.expires_at,
			last_activity_at=EXCLUDED.last_activity_at
	`, s.SessionID, s.TenantID, s.UserID, s.CurrentState, s.ExpiresAt, s.LastActivityAt)
	return err
}

// ListExpired returns sessions whose timer has passed, oldest deadline
// first, for the watchdog sweep.
func (r *SessionRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]entities.ConversationSession, error) {
	rows, err := r.db.Query(ctx, `
		SELECT session_id, tenant_id, user_id, current_state, expires_at, last_activity_at
		FROM sessions
		WHERE expires_at IS NOT NULL AND expires_at < $1
		ORDER BY expires_at ASC
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []entities.ConversationSession{}
	for rows.Next() {
		var s entities.ConversationSession
		if err := rows.Scan(&s.SessionID, &s.TenantID, &s.UserID, &s.CurrentState, &s.ExpiresAt, &s.LastActivityAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// ListByTenant returns every session of a tenant for the dashboard.
func (r *SessionRepository) ListByTenant(ctx context.Context, tenantID string) ([]entities.ConversationSession, error) {
	rows, err := r.db.Query(ctx, `
		SELECT session_id, tenant_id, user_id, current_state, expires_at, last_activity_at
		FROM sessions WHERE tenant_id=$1
		ORDER BY last_activity_at DESC
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []entities.ConversationSession{}
	for rows.Next() {
		var s entities.ConversationSession
		if err := rows.Scan(&s.SessionID, &s.TenantID, &s.UserID, &s.CurrentState, &s.ExpiresAt, &s.LastActivityAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
