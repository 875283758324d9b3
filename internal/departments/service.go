package departments

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/campusledger/campusledger/internal/audit"
)

// RequestMeta identifies the acting user for audit purposes.
type RequestMeta struct {
	ActorID   uuid.UUID
	IP        string
	UserAgent string
}

// Service owns department lifecycle operations.
type Service struct {
	repo     Repository
	recorder *audit.Recorder
}

// NewService constructs the departments service.
func NewService(repo Repository, recorder *audit.Recorder) *Service {
	return &Service{repo: repo, recorder: recorder}
}

// Create inserts a department and audits the creation.
func (s *Service) Create(ctx context.Context, req CreateDepartmentRequest, meta RequestMeta) (*Department, error) {
	d := &Department{
		ID:          uuid.New(),
		Name:        req.Name,
		Code:        req.Code,
		Description: req.Description,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, err
	}
	if err := s.recorder.Record(ctx, audit.Entry{
		ActorID:      &meta.ActorID,
		Action:       audit.ActionCreate,
		ResourceType: "DEPARTMENT",
		ResourceID:   d.ID.String(),
		Details:      map[string]any{"name": d.Name, "code": d.Code},
		IP:           meta.IP,
		UserAgent:    meta.UserAgent,
	}); err != nil {
		return nil, err
	}
	return d, nil
}

// Update applies partial changes; only real changes are audited.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateDepartmentRequest, meta RequestMeta) (*Department, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	old := snapshot(d)
	if req.Name != nil {
		d.Name = *req.Name
	}
	if req.Code != nil {
		d.Code = *req.Code
	}
	if req.Description != nil {
		d.Description = *req.Description
	}
	if err := s.repo.Update(ctx, d); err != nil {
		return nil, err
	}
	changes := audit.Diff(old, snapshot(d))
	if len(changes) > 0 {
		if err := s.recorder.Record(ctx, audit.Entry{
			ActorID:      &meta.ActorID,
			Action:       audit.ActionUpdate,
			ResourceType: "DEPARTMENT",
			ResourceID:   d.ID.String(),
			Details:      map[string]any{"changed_fields": changes},
			IP:           meta.IP,
			UserAgent:    meta.UserAgent,
		}); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Delete removes a department and audits the removal.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, meta RequestMeta) error {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	return s.recorder.Record(ctx, audit.Entry{
		ActorID:      &meta.ActorID,
		Action:       audit.ActionDelete,
		ResourceType: "DEPARTMENT",
		ResourceID:   d.ID.String(),
		Details:      map[string]any{"name": d.Name, "code": d.Code},
		IP:           meta.IP,
		UserAgent:    meta.UserAgent,
	})
}

// GetByID fetches a department.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Department, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns departments ordered by name.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Department, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, limit, offset)
}

func snapshot(d *Department) map[string]any {
	return map[string]any{"name": d.Name, "code": d.Code, "description": d.Description}
}
