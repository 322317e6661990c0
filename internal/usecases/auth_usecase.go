package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"atendebot/internal/entities"
	"atendebot/internal/repository"
)

type AuthUsecase struct {
	userRepo  *repository.UserRepository
	tenants   *repository.TenantManager
	jwtSecret []byte
}

func NewAuthUsecase(repo *repository.UserRepository, tenants *repository.TenantManager, secret string) *AuthUsecase {
	return &AuthUsecase{
		userRepo:  repo,
		tenants:   tenants,
		jwtSecret: []byte(secret),
	}
}

// Register creates an operator account and provisions its tenant
// config schema. The username doubles as the tenant id.
func (uc *AuthUsecase) Register(ctx context.Context, username, password string) error {
	existing, err := uc.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if existing != nil {
		return errors.New("username already exists")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	schemaName, err := uc.tenants.CreateTenantSchema(ctx, username)
	if err != nil {
		return fmt.Errorf("provision tenant: %w", err)
	}

	user := &entities.User{
		Username:     username,
		PasswordHash: string(hashed),
		Role:         "user", // Default
		TenantID:     username,
		SchemaName:   schemaName,
	}

	return uc.userRepo.Create(ctx, user)
}

func (uc *AuthUsecase) Login(ctx context.Context, username, password string) (string, error) {
	user, err := uc.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", errors.New("invalid credentials")
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password))
	if err != nil {
		return "", errors.New("invalid credentials")
	}

	// Generate JWT
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":     user.ID,
		"role":        user.Role,
		"tenant_id":   user.TenantID,
		"schema_name": user.SchemaName,
		"exp":         time.Now().Add(time.Hour * 24).Unix(),
	})

	tokenString, err := token.SignedString(uc.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %v", err)
	}

	return tokenString, nil
}

// EnsureAdmin creates a root user if none exists (called on startup)
func (uc *AuthUsecase) EnsureAdmin(ctx context.Context, username, password string) error {
	user, err := uc.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if user == nil {
		hashed, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		admin := &entities.User{
			Username:     username,
			PasswordHash: string(hashed),
			Role:         "admin",
			TenantID:     username,
		}
		return uc.userRepo.Create(ctx, admin)
	}
	return nil
}
