package repository

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

type TenantManager struct {
	db *pgxpool.Pool
}

func NewTenantManager(db *pgxpool.Pool) *TenantManager {
	return &TenantManager{db: db}
}

// sanitizeSchemaName ensures schema name is safe for SQL
func sanitizeSchemaName(name string) string {
	reg := regexp.MustCompile("[^a-zA-Z0-9_]+")
	return strings.ToLower(reg.ReplaceAllString(name, "_"))
}

// TenantSchema maps a tenant id to its config schema name.
func TenantSchema(tenantID string) string {
	return "tenant_" + sanitizeSchemaName(tenantID)
}

// CreateTenantSchema creates the per-tenant schema holding the tenant's
// reply configuration. Sessions and messages stay in the shared tables,
// keyed by tenant_id, so the watchdog can sweep them in one query.
func (t *TenantManager) CreateTenantSchema(ctx context.Context, tenantID string) (string, error) {
	schemaName := TenantSchema(tenantID)

	tx, err := t.db.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schemaName))
	if err != nil {
		return "", fmt.Errorf("failed to create schema: %w", err)
	}

	_, err = tx.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.bot_config (
			id SERIAL PRIMARY KEY,
			key VARCHAR(64) UNIQUE NOT NULL,
			value TEXT,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`, schemaName))
	if err != nil {
		return "", fmt.Errorf("failed to create table: %w", err)
	}

	return schemaName, tx.Commit(ctx)
}

// DropTenantSchema removes a tenant's schema and all its config
func (t *TenantManager) DropTenantSchema(ctx context.Context, schemaName string) error {
	schemaName = sanitizeSchemaName(schemaName)

	_, err := t.db.Exec(ctx, fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", schemaName))
	return err
}
