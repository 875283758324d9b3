package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ResourceType names a resource family subject to scope checks.
type ResourceType string

const (
	ResourceDepartment  ResourceType = "department"
	ResourceBudget      ResourceType = "budget"
	ResourceTransaction ResourceType = "transaction"
	ResourceUser        ResourceType = "user"
)

// ErrResourceNotFound indicates the target resource does not exist. Scope
// lookup failures also map here: existence is confirmed before scope is
// compared, and a resource the caller may not see must look absent.
var ErrResourceNotFound = errors.New("rbac: resource not found")

// ScopeSource resolves a resource instance to the department scope it belongs
// to. Implementations return ErrResourceNotFound when the resource is absent.
type ScopeSource interface {
	FetchResourceScope(ctx context.Context, resource ResourceType, id uuid.UUID) (uuid.UUID, error)
}

// queryRower is the slice of pgxpool.Pool the scope source needs.
type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGScopeSource resolves resource scopes from PostgreSQL.
type PGScopeSource struct {
	db queryRower
}

// NewPGScopeSource constructs a scope source over the given pool.
func NewPGScopeSource(db queryRower) *PGScopeSource {
	return &PGScopeSource{db: db}
}

// FetchResourceScope returns the department that owns the resource. Users
// carry no department scope here; the lookup only confirms existence, since
// the user policy compares identities rather than departments. Transactions
// require the two-hop join through their budget.
func (s *PGScopeSource) FetchResourceScope(ctx context.Context, resource ResourceType, id uuid.UUID) (uuid.UUID, error) {
	var (
		scope uuid.UUID
		err   error
	)
	switch resource {
	case ResourceDepartment:
		err = s.db.QueryRow(ctx, `SELECT id FROM departments WHERE id = $1`, id).Scan(&scope)
	case ResourceBudget:
		err = s.db.QueryRow(ctx, `SELECT department_id FROM budgets WHERE id = $1`, id).Scan(&scope)
	case ResourceTransaction:
		err = s.db.QueryRow(ctx,
			`SELECT b.department_id FROM transactions t JOIN budgets b ON b.id = t.budget_id WHERE t.id = $1`,
			id).Scan(&scope)
	case ResourceUser:
		var exists uuid.UUID
		err = s.db.QueryRow(ctx, `SELECT id FROM users WHERE id = $1`, id).Scan(&exists)
		scope = uuid.Nil
	default:
		return uuid.Nil, fmt.Errorf("rbac: unknown resource type %q", resource)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrResourceNotFound
		}
		// Fail closed: a lookup we cannot complete reads as absent.
		return uuid.Nil, fmt.Errorf("%w: %s %s: %v", ErrResourceNotFound, resource, id, err)
	}
	return scope, nil
}

var _ ScopeSource = (*PGScopeSource)(nil)
