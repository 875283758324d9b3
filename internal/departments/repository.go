package departments

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusledger/campusledger/internal/platform/httpx"
)

// Repository defines persistence operations for departments.
type Repository interface {
	Create(ctx context.Context, d *Department) error
	GetByID(ctx context.Context, id uuid.UUID) (*Department, error)
	List(ctx context.Context, limit, offset int) ([]Department, error)
	Update(ctx context.Context, d *Department) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) Create(ctx context.Context, d *Department) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO departments (id, name, code, description, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $5)`,
		d.ID, d.Name, d.Code, d.Description, d.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return httpx.ErrDuplicate
		}
		return fmt.Errorf("departments: insert: %w", err)
	}
	return nil
}

func (r *PGRepository) GetByID(ctx context.Context, id uuid.UUID) (*Department, error) {
	var d Department
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, code, description, created_at, updated_at FROM departments WHERE id = $1`, id).
		Scan(&d.ID, &d.Name, &d.Code, &d.Description, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, fmt.Errorf("departments: fetch: %w", err)
	}
	return &d, nil
}

func (r *PGRepository) List(ctx context.Context, limit, offset int) ([]Department, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, code, description, created_at, updated_at FROM departments ORDER BY name LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("departments: list: %w", err)
	}
	defer rows.Close()

	var out []Department
	for rows.Next() {
		var d Department
		if err := rows.Scan(&d.ID, &d.Name, &d.Code, &d.Description, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("departments: scan: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *PGRepository) Update(ctx context.Context, d *Department) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE departments SET name=$2, code=$3, description=$4, updated_at=NOW() WHERE id=$1`,
		d.ID, d.Name, d.Code, d.Description)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return httpx.ErrDuplicate
		}
		return fmt.Errorf("departments: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (r *PGRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM departments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("departments: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
