package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BotConfig struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ConfigRepository struct {
	db *pgxpool.Pool
}

func NewConfigRepository(db *pgxpool.Pool) *ConfigRepository {
	return &ConfigRepository{db: db}
}

// qualifyConfigTable returns schema-qualified table name
func qualifyConfigTable(schema, table string) string {
	if schema == "" || schema == "public" {
		return table
	}
	return fmt.Sprintf("%s.%s", schema, table)
}

// GetConfig returns a config value by key (schema-aware)
func (r *ConfigRepository) GetConfig(ctx context.Context, schemaName, key string) (string, error) {
	table := qualifyConfigTable(schemaName, "bot_config")
	var value string
	err := r.db.QueryRow(ctx, fmt.Sprintf("SELECT value FROM %s WHERE key=$1", table), key).Scan(&value)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", nil // Not found is not strictly an error
		}
		return "", err
	}
	return value, nil
}

// SetConfig sets a config value (schema-aware)
func (r *ConfigRepository) SetConfig(ctx context.Context, schemaName, key, value string) error {
	table := qualifyConfigTable(schemaName, "bot_config")
	_, err := r.db.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value=EXCLUDED.value, updated_at=NOW()
	`, table), key, value)
	return err
}

// GetAllConfigs returns all configs (schema-aware)
func (r *ConfigRepository) GetAllConfigs(ctx context.Context, schemaName string) ([]BotConfig, error) {
	table := qualifyConfigTable(schemaName, "bot_config")
	rows, err := r.db.Query(ctx, fmt.Sprintf("SELECT key, value, updated_at FROM %s", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	configs := []BotConfig{}
	for rows.Next() {
		var c BotConfig
		if err := rows.Scan(&c.Key, &c.Value, &c.UpdatedAt); err != nil {
			return nil, err
		}
		configs = append(configs, c)
	}
	return configs, nil
}
