package transactions

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/campusledger/campusledger/internal/audit"
	"github.com/campusledger/campusledger/internal/platform/httpx"
	"github.com/campusledger/campusledger/internal/rbac"
)

// RequestMeta identifies the acting user for audit purposes.
type RequestMeta struct {
	ActorID   uuid.UUID
	IP        string
	UserAgent string
}

// Service owns transaction lifecycle operations.
type Service struct {
	repo     Repository
	recorder *audit.Recorder
}

// NewService constructs the transactions service.
func NewService(repo Repository, recorder *audit.Recorder) *Service {
	return &Service{repo: repo, recorder: recorder}
}

// Create records an income or expense entry. The target budget's department
// is resolved first so the actor can be checked before anything is written.
func (s *Service) Create(ctx context.Context, actor rbac.Actor, req CreateTransactionRequest, meta RequestMeta) (*Transaction, error) {
	budgetID, err := uuid.Parse(req.BudgetID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid budget id", httpx.ErrValidation)
	}
	deptID, err := s.repo.BudgetDepartment(ctx, budgetID)
	if err != nil {
		return nil, err
	}
	if !rbac.CanManageTransaction(actor.Role, actor.DepartmentID, deptID) {
		return nil, httpx.ErrForbidden
	}
	createdBy := actor.ID
	t := &Transaction{
		ID:              uuid.New(),
		BudgetID:        budgetID,
		Type:            req.Type,
		Amount:          req.Amount,
		Description:     req.Description,
		ReferenceNumber: req.ReferenceNumber,
		CreatedBy:       &createdBy,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	if err := s.recorder.Record(ctx, audit.Entry{
		ActorID:      &meta.ActorID,
		Action:       audit.ActionCreate,
		ResourceType: "TRANSACTION",
		ResourceID:   t.ID.String(),
		Details:      map[string]any{"budget_id": budgetID.String(), "type": t.Type, "amount": t.Amount},
		IP:           meta.IP,
		UserAgent:    meta.UserAgent,
	}); err != nil {
		return nil, err
	}
	return t, nil
}

// Update applies partial changes; only real changes are audited. The type of
// a posted transaction is immutable, so amount edits translate directly into
// a spent-amount delta on the budget.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateTransactionRequest, meta RequestMeta) (*Transaction, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	old := snapshot(t)
	oldAmount := t.Amount
	if req.Amount != nil {
		t.Amount = *req.Amount
	}
	if req.Description != nil {
		t.Description = *req.Description
	}
	if req.ReferenceNumber != nil {
		t.ReferenceNumber = *req.ReferenceNumber
	}
	if err := s.repo.Update(ctx, t, t.Amount-oldAmount); err != nil {
		return nil, err
	}
	changes := audit.Diff(old, snapshot(t))
	if len(changes) > 0 {
		if err := s.recorder.Record(ctx, audit.Entry{
			ActorID:      &meta.ActorID,
			Action:       audit.ActionUpdate,
			ResourceType: "TRANSACTION",
			ResourceID:   t.ID.String(),
			Details:      map[string]any{"changed_fields": changes},
			IP:           meta.IP,
			UserAgent:    meta.UserAgent,
		}); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Delete removes a transaction, reverses its budget effect, and audits.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, meta RequestMeta) error {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, t); err != nil {
		return err
	}
	return s.recorder.Record(ctx, audit.Entry{
		ActorID:      &meta.ActorID,
		Action:       audit.ActionDelete,
		ResourceType: "TRANSACTION",
		ResourceID:   t.ID.String(),
		Details:      map[string]any{"budget_id": t.BudgetID.String(), "type": t.Type, "amount": t.Amount},
		IP:           meta.IP,
		UserAgent:    meta.UserAgent,
	})
}

// GetByID fetches a transaction.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns transactions, optionally filtered by budget. Non-admin,
// non-finance actors only see entries from their own department's budgets.
func (s *Service) List(ctx context.Context, actor rbac.Actor, budgetID uuid.UUID, limit, offset int) ([]Transaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	departmentID := uuid.Nil
	switch actor.Role {
	case rbac.RoleAdmin, rbac.RoleFinanceManager:
	default:
		departmentID = actor.DepartmentID
		if departmentID == uuid.Nil {
			return []Transaction{}, nil
		}
	}
	return s.repo.List(ctx, budgetID, departmentID, limit, offset)
}

func snapshot(t *Transaction) map[string]any {
	return map[string]any{"amount": t.Amount, "description": t.Description, "reference_number": t.ReferenceNumber}
}
