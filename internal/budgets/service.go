package budgets

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

// Service owns budget lifecycle operations.
type Service struct {
	repo     Repository
	recorder *audit.Recorder
}

// NewService constructs the budgets service.
func NewService(repo Repository, recorder *audit.Recorder) *Service {
	return &Service{repo: repo, recorder: recorder}
}

// Create inserts a budget for a department. The route guard cannot scope a
// resource that does not exist yet, so the target department is checked
// against the actor here.
func (s *Service) Create(ctx context.Context, actor rbac.Actor, req CreateBudgetRequest, meta RequestMeta) (*Budget, error) {
	deptID, err := uuid.Parse(req.DepartmentID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid department id", httpx.ErrValidation)
	}
	if !rbac.CanManageBudget(actor.Role, actor.DepartmentID, deptID) {
		return nil, httpx.ErrForbidden
	}
	b := &Budget{
		ID:           uuid.New(),
		DepartmentID: deptID,
		FiscalYear:   req.FiscalYear,
		TotalAmount:  req.TotalAmount,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, b); err != nil {
		return nil, err
	}
	if err := s.recorder.Record(ctx, audit.Entry{
		ActorID:      &meta.ActorID,
		Action:       audit.ActionCreate,
		ResourceType: "BUDGET",
		ResourceID:   b.ID.String(),
		Details:      map[string]any{"department_id": deptID.String(), "fiscal_year": b.FiscalYear, "total_amount": b.TotalAmount},
		IP:           meta.IP,
		UserAgent:    meta.UserAgent,
	}); err != nil {
		return nil, err
	}
	return b, nil
}

// Update applies partial changes; only real changes are audited.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateBudgetRequest, meta RequestMeta) (*Budget, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	old := snapshot(b)
	if req.FiscalYear != nil {
		b.FiscalYear = *req.FiscalYear
	}
	if req.TotalAmount != nil {
		b.TotalAmount = *req.TotalAmount
	}
	if err := s.repo.Update(ctx, b); err != nil {
		return nil, err
	}
	changes := audit.Diff(old, snapshot(b))
	if len(changes) > 0 {
		if err := s.recorder.Record(ctx, audit.Entry{
			ActorID:      &meta.ActorID,
			Action:       audit.ActionUpdate,
			ResourceType: "BUDGET",
			ResourceID:   b.ID.String(),
			Details:      map[string]any{"changed_fields": changes},
			IP:           meta.IP,
			UserAgent:    meta.UserAgent,
		}); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Delete removes a budget and audits the removal.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, meta RequestMeta) error {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	return s.recorder.Record(ctx, audit.Entry{
		ActorID:      &meta.ActorID,
		Action:       audit.ActionDelete,
		ResourceType: "BUDGET",
		ResourceID:   b.ID.String(),
		Details:      map[string]any{"department_id": b.DepartmentID.String(), "fiscal_year": b.FiscalYear},
		IP:           meta.IP,
		UserAgent:    meta.UserAgent,
	})
}

// GetByID fetches a budget.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Budget, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns budgets, optionally filtered by department. Viewers and
// department heads only see their own department's budgets.
func (s *Service) List(ctx context.Context, actor rbac.Actor, departmentID uuid.UUID, limit, offset int) ([]Budget, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	switch actor.Role {
	case rbac.RoleAdmin, rbac.RoleFinanceManager:
	default:
		departmentID = actor.DepartmentID
		if departmentID == uuid.Nil {
			return []Budget{}, nil
		}
	}
	return s.repo.List(ctx, departmentID, limit, offset)
}

func snapshot(b *Budget) map[string]any {
	return map[string]any{"fiscal_year": b.FiscalYear, "total_amount": b.TotalAmount}
}
