package users

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"golang.org/x/crypto/bcrypt"

	"github.com/campusledger/campusledger/internal/audit"
	"github.com/campusledger/campusledger/internal/platform/httpx"
	"github.com/campusledger/campusledger/internal/rbac"
	"github.com/campusledger/campusledger/jobs"
)

// MailQueue enqueues transactional email tasks. Satisfied by *asynq.Client.
type MailQueue interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// RequestMeta identifies who performed an operation and from where, for the
// audit trail.
type RequestMeta struct {
	ActorID   uuid.UUID
	IP        string
	UserAgent string
}

// Service owns user lifecycle operations.
type Service struct {
	repo     Repository
	recorder *audit.Recorder
	cache    *rbac.PermissionCache
	mail     MailQueue
	logger   *slog.Logger
}

// NewService constructs the users service.
func NewService(repo Repository, recorder *audit.Recorder, cache *rbac.PermissionCache, mail MailQueue, logger *slog.Logger) *Service {
	return &Service{repo: repo, recorder: recorder, cache: cache, mail: mail, logger: logger}
}

// Create registers a new account, audits the creation and queues a welcome
// email. Audit failure fails the call; mail failure does not.
func (s *Service) Create(ctx context.Context, req CreateUserRequest, meta RequestMeta) (*User, error) {
	role, err := rbac.ParseRole(req.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("users: hash password: %w", err)
	}
	user := &User{
		ID:           uuid.New(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         string(role),
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}
	if req.DepartmentID != nil {
		dept, err := uuid.Parse(*req.DepartmentID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid department id", httpx.ErrValidation)
		}
		user.DepartmentID = dept
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	if err := s.recorder.Record(ctx, audit.Entry{
		ActorID:      actorRef(meta.ActorID),
		Action:       audit.ActionCreate,
		ResourceType: "USER",
		ResourceID:   user.ID.String(),
		Details: map[string]any{
			"username": user.Username, "email": user.Email,
			"role": user.Role, "is_active": user.IsActive,
		},
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
	}); err != nil {
		return nil, err
	}

	s.enqueueMail(ctx, jobs.SendEmailPayload{
		To:      user.Email,
		Subject: "Welcome to CampusLedger",
		Body:    fmt.Sprintf("Hello %s, your account has been created.", user.Username),
	})
	return user, nil
}

// Update applies partial changes. Only fields that actually changed are
// audited; an update that changes nothing emits no audit record. A role
// change invalidates the cached permission set synchronously and notifies the
// user by email.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateUserRequest, meta RequestMeta) (*User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	old := snapshot(user)
	oldRole := user.Role

	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("users: hash password: %w", err)
		}
		user.PasswordHash = string(hash)
	}
	if req.Role != nil {
		role, err := rbac.ParseRole(*req.Role)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
		}
		user.Role = string(role)
	}
	if req.DepartmentID != nil {
		dept, err := uuid.Parse(*req.DepartmentID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid department id", httpx.ErrValidation)
		}
		user.DepartmentID = dept
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}

	changes := audit.Diff(old, snapshot(user))
	if len(changes) > 0 {
		if err := s.recorder.Record(ctx, audit.Entry{
			ActorID:      actorRef(meta.ActorID),
			Action:       audit.ActionUpdate,
			ResourceType: "USER",
			ResourceID:   user.ID.String(),
			Details:      map[string]any{"changed_fields": changes},
			IP:           meta.IP,
			UserAgent:    meta.UserAgent,
		}); err != nil {
			return nil, err
		}
	}

	if user.Role != oldRole {
		if err := s.cache.Invalidate(ctx, user.ID); err != nil {
			return nil, err
		}
		s.logger.Info("user role changed",
			slog.String("user_id", user.ID.String()),
			slog.String("old_role", oldRole), slog.String("new_role", user.Role))
		s.enqueueMail(ctx, jobs.SendEmailPayload{
			To:      user.Email,
			Subject: "Your CampusLedger role has changed",
			Body:    fmt.Sprintf("Hello %s, your role changed from %s to %s.", user.Username, oldRole, user.Role),
		})
	}

	return user, nil
}

// SetTwoFactor toggles two-factor authentication. Security-state changes
// invalidate the cached permission set regardless of role.
func (s *Service) SetTwoFactor(ctx context.Context, id uuid.UUID, enabled bool, meta RequestMeta) (*User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.TwoFactorEnabled == enabled {
		return user, nil
	}

	old := snapshot(user)
	user.TwoFactorEnabled = enabled
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}

	if err := s.recorder.Record(ctx, audit.Entry{
		ActorID:      actorRef(meta.ActorID),
		Action:       audit.ActionUpdate,
		ResourceType: "USER",
		ResourceID:   user.ID.String(),
		Details:      map[string]any{"changed_fields": audit.Diff(old, snapshot(user))},
		IP:           meta.IP,
		UserAgent:    meta.UserAgent,
	}); err != nil {
		return nil, err
	}

	if err := s.cache.Invalidate(ctx, user.ID); err != nil {
		return nil, err
	}
	return user, nil
}

// Delete removes an account, audits the deletion with a snapshot of the
// removed data and drops the cached permission set.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, meta RequestMeta) error {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	if err := s.recorder.Record(ctx, audit.Entry{
		ActorID:      actorRef(meta.ActorID),
		Action:       audit.ActionDelete,
		ResourceType: "USER",
		ResourceID:   user.ID.String(),
		Details: map[string]any{
			"username": user.Username, "email": user.Email,
			"role": user.Role, "is_active": user.IsActive,
		},
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
	}); err != nil {
		return err
	}

	if err := s.cache.Invalidate(ctx, id); err != nil {
		return err
	}

	s.enqueueMail(ctx, jobs.SendEmailPayload{
		To:      user.Email,
		Subject: "Your CampusLedger account was deleted",
		Body:    fmt.Sprintf("Hello %s, your account has been removed.", user.Username),
	})
	return nil
}

// GetByID fetches a single user. Reads are not audited.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns users ordered by username.
func (s *Service) List(ctx context.Context, limit, offset int) ([]User, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) enqueueMail(ctx context.Context, payload jobs.SendEmailPayload) {
	if s.mail == nil {
		return
	}
	task, err := jobs.NewSendEmailTask(payload)
	if err != nil {
		s.logger.Error("build email task", slog.Any("error", err))
		return
	}
	if _, err := s.mail.EnqueueContext(ctx, task); err != nil {
		s.logger.Error("enqueue email task", slog.String("to", payload.To), slog.Any("error", err))
	}
}

// snapshot captures the auditable fields of a user. Password hashes are
// deliberately excluded from audit payloads.
func snapshot(u *User) map[string]any {
	var dept any
	if u.DepartmentID != uuid.Nil {
		dept = u.DepartmentID.String()
	}
	return map[string]any{
		"email":              u.Email,
		"role":               u.Role,
		"department_id":      dept,
		"is_active":          u.IsActive,
		"two_factor_enabled": u.TwoFactorEnabled,
	}
}

func actorRef(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
