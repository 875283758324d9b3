package transactions

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

// Repository defines persistence operations for transactions.
type Repository interface {
	Create(ctx context.Context, t *Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	List(ctx context.Context, budgetID, departmentID uuid.UUID, limit, offset int) ([]Transaction, error)
	Update(ctx context.Context, t *Transaction, amountDelta float64) error
	Delete(ctx context.Context, t *Transaction) error
	BudgetDepartment(ctx context.Context, budgetID uuid.UUID) (uuid.UUID, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const txnColumns = `id, budget_id, type, amount, description, reference_number, created_by, created_at, updated_at`

// Create inserts the transaction and bumps the budget's spent amount for
// expenses in the same database transaction.
func (r *PGRepository) Create(ctx context.Context, t *Transaction) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("transactions: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO transactions (id, budget_id, type, amount, description, reference_number, created_by, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`,
		t.ID, t.BudgetID, t.Type, t.Amount, t.Description, t.ReferenceNumber, t.CreatedBy, t.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return httpx.ErrDuplicate
			case "23503":
				return fmt.Errorf("%w: unknown budget", httpx.ErrValidation)
			}
		}
		return fmt.Errorf("transactions: insert: %w", err)
	}
	if t.Type == TypeExpense {
		if _, err := tx.Exec(ctx,
			`UPDATE budgets SET spent_amount = spent_amount + $2, updated_at = NOW() WHERE id = $1`,
			t.BudgetID, t.Amount); err != nil {
			return fmt.Errorf("transactions: adjust budget: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (r *PGRepository) GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	var t Transaction
	err := r.pool.QueryRow(ctx,
		`SELECT `+txnColumns+` FROM transactions WHERE id = $1`, id).
		Scan(&t.ID, &t.BudgetID, &t.Type, &t.Amount, &t.Description, &t.ReferenceNumber, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, fmt.Errorf("transactions: fetch: %w", err)
	}
	return &t, nil
}

func (r *PGRepository) List(ctx context.Context, budgetID, departmentID uuid.UUID, limit, offset int) ([]Transaction, error) {
	query := `SELECT t.id, t.budget_id, t.type, t.amount, t.description, t.reference_number, t.created_by, t.created_at, t.updated_at
		FROM transactions t JOIN budgets b ON b.id = t.budget_id`
	args := []any{limit, offset}
	var where []string
	if budgetID != uuid.Nil {
		args = append(args, budgetID)
		where = append(where, fmt.Sprintf("t.budget_id = $%d", len(args)))
	}
	if departmentID != uuid.Nil {
		args = append(args, departmentID)
		where = append(where, fmt.Sprintf("b.department_id = $%d", len(args)))
	}
	for i, cond := range where {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += ` ORDER BY t.created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("transactions: list: %w", err)
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.BudgetID, &t.Type, &t.Amount, &t.Description, &t.ReferenceNumber, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("transactions: scan: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Update rewrites the mutable columns and applies the expense delta to the
// budget's spent amount in the same database transaction.
func (r *PGRepository) Update(ctx context.Context, t *Transaction, amountDelta float64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("transactions: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE transactions SET amount=$2, description=$3, reference_number=$4, updated_at=NOW() WHERE id=$1`,
		t.ID, t.Amount, t.Description, t.ReferenceNumber)
	if err != nil {
		return fmt.Errorf("transactions: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	if t.Type == TypeExpense && amountDelta != 0 {
		if _, err := tx.Exec(ctx,
			`UPDATE budgets SET spent_amount = spent_amount + $2, updated_at = NOW() WHERE id = $1`,
			t.BudgetID, amountDelta); err != nil {
			return fmt.Errorf("transactions: adjust budget: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// Delete removes the transaction and reverses its effect on the budget's
// spent amount.
func (r *PGRepository) Delete(ctx context.Context, t *Transaction) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("transactions: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, t.ID)
	if err != nil {
		return fmt.Errorf("transactions: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	if t.Type == TypeExpense {
		if _, err := tx.Exec(ctx,
			`UPDATE budgets SET spent_amount = spent_amount - $2, updated_at = NOW() WHERE id = $1`,
			t.BudgetID, t.Amount); err != nil {
			return fmt.Errorf("transactions: adjust budget: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// BudgetDepartment resolves the department owning a budget.
func (r *PGRepository) BudgetDepartment(ctx context.Context, budgetID uuid.UUID) (uuid.UUID, error) {
	var deptID uuid.UUID
	err := r.pool.QueryRow(ctx,
		`SELECT department_id FROM budgets WHERE id = $1`, budgetID).Scan(&deptID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, httpx.ErrNotFound
		}
		return uuid.Nil, fmt.Errorf("transactions: budget lookup: %w", err)
	}
	return deptID, nil
}

var _ Repository = (*PGRepository)(nil)
