package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"atendebot/internal/entities"
)

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *entities.User) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO users (username, password_hash, role, tenant_id, schema_name, is_active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		RETURNING id
	`, user.Username, user.PasswordHash, user.Role, user.TenantID, user.SchemaName).Scan(&user.ID)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*entities.User, error) {
	var user entities.User
	err := r.db.QueryRow(ctx, `
		SELECT id, username, password_hash, role, COALESCE(tenant_id, ''), COALESCE(schema_name, ''), is_active
		FROM users WHERE username = $1
	`, username).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Role, &user.TenantID, &user.SchemaName, &user.IsActive)

	if err == pgx.ErrNoRows {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
