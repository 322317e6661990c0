package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresClient struct {
	Pool *pgxpool.Pool
}

func NewPostgresClient(connString string) (*PostgresClient, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	// Pool configuration
	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	client := &PostgresClient{Pool: pool}

	if err := client.Migrate(); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return client, nil
}

func (p *PostgresClient) Migrate() error {
	ctx := context.Background()

	// Operator accounts
	_, err := p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			username VARCHAR(50) UNIQUE NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			role VARCHAR(20) DEFAULT 'user',
			tenant_id VARCHAR(64) UNIQUE,
			schema_name VARCHAR(64),
			is_active BOOLEAN DEFAULT TRUE,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("create users table: %w", err)
	}

	// Conversation sessions: exactly one row per (tenant, user) pair.
	// session_id is derived deterministically from the pair, so the
	// primary key enforces the invariant on its own.
	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS sessions (
			session_id UUID PRIMARY KEY,
			tenant_id VARCHAR(64) NOT NULL,
			user_id VARCHAR(64) NOT NULL,
			current_state VARCHAR(20) NOT NULL DEFAULT 'idle',
			expires_at TIMESTAMPTZ,
			last_activity_at TIMESTAMPTZ NOT NULL,
			UNIQUE (tenant_id, user_id)
		);
	`)
	if err != nil {
		return fmt.Errorf("create sessions table: %w", err)
	}

	_, err = p.Pool.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS idx_sessions_expires
		ON sessions (expires_at) WHERE expires_at IS NOT NULL;
	`)
	if err != nil {
		return fmt.Errorf("create sessions expiry index: %w", err)
	}

	// Append-only message log. The partial unique index on
	// (tenant_id, channel_message_id) suppresses transport redeliveries.
	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS messages (
			id UUID PRIMARY KEY,
			tenant_id VARCHAR(64) NOT NULL,
			user_id VARCHAR(64) NOT NULL,
			session_id UUID NOT NULL,
			direction VARCHAR(10) NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			intent_detected VARCHAR(32),
			confidence DOUBLE PRECISION DEFAULT 0,
			decision_method VARCHAR(10) DEFAULT 'none',
			outcome VARCHAR(32),
			channel_message_id VARCHAR(128)
		);
	`)
	if err != nil {
		return fmt.Errorf("create messages table: %w", err)
	}

	_, err = p.Pool.Exec(ctx, `
		CREATE UNIQUE INDEX IF NOT EXISTS ux_messages_channel_id
		ON messages (tenant_id, channel_message_id)
		WHERE channel_message_id IS NOT NULL AND channel_message_id <> '';
	`)
	if err != nil {
		return fmt.Errorf("create messages dedup index: %w", err)
	}

	_, err = p.Pool.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS idx_messages_session
		ON messages (tenant_id, session_id, created_at);
	`)
	if err != nil {
		return fmt.Errorf("create messages session index: %w", err)
	}

	return nil
}

func (p *PostgresClient) Close() {
	p.Pool.Close()
}
