package auth

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/campusledger/campusledger/internal/audit"
	"github.com/campusledger/campusledger/internal/rbac"
)

// Service wraps authentication business rules.
type Service struct {
	repo     Repository
	tokens   *JWTManager
	recorder *audit.Recorder
	cache    *rbac.PermissionCache
	logger   *slog.Logger
}

// NewService constructs a new Service.
func NewService(repo Repository, tokens *JWTManager, recorder *audit.Recorder, cache *rbac.PermissionCache, logger *slog.Logger) *Service {
	return &Service{repo: repo, tokens: tokens, recorder: recorder, cache: cache, logger: logger}
}

// RequestMeta carries the client details audited with auth events.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// Login validates credentials and returns a signed token. A successful login
// invalidates any cached permission set so the session starts from the
// account's current role, then records a LOGIN event. Audit failures never
// fail the login.
func (s *Service) Login(ctx context.Context, username, password string, meta RequestMeta) (string, *Account, error) {
	account, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		s.logger.Warn("login failed, user not found", slog.String("username", username))
		s.recordLoginFailed(ctx, username, meta)
		return "", nil, ErrInvalidCredentials
	}
	if !account.IsActive {
		s.logger.Warn("login failed, inactive account", slog.String("username", username))
		s.recordLoginFailed(ctx, username, meta)
		return "", nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		s.logger.Warn("login failed, invalid password", slog.String("username", username))
		s.recordLoginFailed(ctx, username, meta)
		return "", nil, ErrInvalidCredentials
	}

	if err := s.cache.Invalidate(ctx, account.ID); err != nil {
		s.logger.Error("invalidate permissions on login", slog.Any("error", err))
	}

	token, err := s.tokens.Issue(account.Username)
	if err != nil {
		return "", nil, err
	}

	s.recorder.RecordAuth(ctx, audit.Entry{
		ActorID:      &account.ID,
		Action:       audit.ActionLogin,
		ResourceType: "USER",
		ResourceID:   account.ID.String(),
		Details:      map[string]any{"username": account.Username, "success": true},
		IP:           meta.IP,
		UserAgent:    meta.UserAgent,
	})

	return token, account, nil
}

// recordLoginFailed audits a rejected login. The actor id stays nil since
// nothing was authenticated, and the details never say which check failed.
func (s *Service) recordLoginFailed(ctx context.Context, username string, meta RequestMeta) {
	s.recorder.RecordAuth(ctx, audit.Entry{
		Action:       audit.ActionLoginFailed,
		ResourceType: "USER",
		Details:      map[string]any{"username": username, "success": false},
		IP:           meta.IP,
		UserAgent:    meta.UserAgent,
	})
}

// Logout records a LOGOUT event. Token revocation is the credential service's
// concern; the subsystem only audits the action.
func (s *Service) Logout(ctx context.Context, actorID uuid.UUID, username string, meta RequestMeta) {
	s.recorder.RecordAuth(ctx, audit.Entry{
		ActorID:      &actorID,
		Action:       audit.ActionLogout,
		ResourceType: "USER",
		ResourceID:   actorID.String(),
		Details:      map[string]any{"username": username},
		IP:           meta.IP,
		UserAgent:    meta.UserAgent,
	})
}
