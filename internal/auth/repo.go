package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusledger/campusledger/internal/platform/httpx"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	FindByUsername(ctx context.Context, username string) (*Account, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Account, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const accountColumns = `id, username, email, password_hash, role, department_id, is_active, two_factor_enabled, created_at, updated_at`

// FindByUsername fetches an account by username.
func (r *PGRepository) FindByUsername(ctx context.Context, username string) (*Account, error) {
	return r.one(ctx, `SELECT `+accountColumns+` FROM users WHERE username = $1`, username)
}

// FindByID fetches an account by ID.
func (r *PGRepository) FindByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	return r.one(ctx, `SELECT `+accountColumns+` FROM users WHERE id = $1`, id)
}

func (r *PGRepository) one(ctx context.Context, query string, arg any) (*Account, error) {
	var (
		acc  Account
		dept *uuid.UUID
	)
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&acc.ID, &acc.Username, &acc.Email, &acc.PasswordHash, &acc.Role,
		&dept, &acc.IsActive, &acc.TwoFactorEnabled, &acc.CreatedAt, &acc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, fmt.Errorf("auth: fetch account: %w", err)
	}
	if dept != nil {
		acc.DepartmentID = *dept
	}
	return &acc, nil
}

var _ Repository = (*PGRepository)(nil)
