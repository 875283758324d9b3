package budgets

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

// Repository defines persistence operations for budgets.
type Repository interface {
	Create(ctx context.Context, b *Budget) error
	GetByID(ctx context.Context, id uuid.UUID) (*Budget, error)
	List(ctx context.Context, departmentID uuid.UUID, limit, offset int) ([]Budget, error)
	Update(ctx context.Context, b *Budget) error
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

const budgetColumns = `id, department_id, fiscal_year, total_amount, spent_amount, created_at, updated_at`

func (r *PGRepository) Create(ctx context.Context, b *Budget) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO budgets (id, department_id, fiscal_year, total_amount, spent_amount, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $6)`,
		b.ID, b.DepartmentID, b.FiscalYear, b.TotalAmount, b.SpentAmount, b.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return httpx.ErrDuplicate
			case "23503":
				return fmt.Errorf("%w: unknown department", httpx.ErrValidation)
			}
		}
		return fmt.Errorf("budgets: insert: %w", err)
	}
	return nil
}

func (r *PGRepository) GetByID(ctx context.Context, id uuid.UUID) (*Budget, error) {
	var b Budget
	err := r.pool.QueryRow(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE id = $1`, id).
		Scan(&b.ID, &b.DepartmentID, &b.FiscalYear, &b.TotalAmount, &b.SpentAmount, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, fmt.Errorf("budgets: fetch: %w", err)
	}
	return &b, nil
}

func (r *PGRepository) List(ctx context.Context, departmentID uuid.UUID, limit, offset int) ([]Budget, error) {
	query := `SELECT ` + budgetColumns + ` FROM budgets`
	args := []any{limit, offset}
	if departmentID != uuid.Nil {
		query += ` WHERE department_id = $3`
		args = append(args, departmentID)
	}
	query += ` ORDER BY fiscal_year DESC, created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("budgets: list: %w", err)
	}
	defer rows.Close()

	var out []Budget
	for rows.Next() {
		var b Budget
		if err := rows.Scan(&b.ID, &b.DepartmentID, &b.FiscalYear, &b.TotalAmount, &b.SpentAmount, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("budgets: scan: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *PGRepository) Update(ctx context.Context, b *Budget) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE budgets SET fiscal_year=$2, total_amount=$3, updated_at=NOW() WHERE id=$1`,
		b.ID, b.FiscalYear, b.TotalAmount)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return httpx.ErrDuplicate
		}
		return fmt.Errorf("budgets: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (r *PGRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM budgets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("budgets: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
