package rbac

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/campusledger/campusledger/internal/platform/httpx"
)

// Authorization failures, distinct so the boundary can map them to the right
// status and message.
var (
	ErrUnauthenticated  = errors.New("rbac: unauthenticated")
	ErrPermissionDenied = errors.New("insufficient permissions")
	ErrResourceDenied   = errors.New("access denied to this resource")
)

// DenialRecorder receives a signal for every authorization denial, keyed by
// the guard stage that rejected the request.
type DenialRecorder interface {
	AuthorizationDenied(stage string)
}

// Middleware produces the guards protected routes mount. Guard order is
// fixed: actor, permission, existence, scope. Later guards assume earlier
// ones passed, so the chain must not be reordered. Existence is deliberately
// checked before scope so an inaccessible resource reads as 404 rather than
// confirming it exists.
type Middleware struct {
	Cache   *PermissionCache
	Scopes  ScopeSource
	Logger  *slog.Logger
	Denials DenialRecorder
}

// RequirePermission guards a route with a role-level permission check.
func (m Middleware) RequirePermission(perm Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := m.checkPermission(w, r, perm); !ok {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireResource guards a route with the permission check followed by a
// resource existence and scope check. The resource ID is read from the named
// chi URL parameter.
func (m Middleware) RequireResource(perm Permission, resource ResourceType, param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := m.checkPermission(w, r, perm)
			if !ok {
				return
			}
			if !m.checkScope(w, r, actor, resource, param) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireScope guards a route with the existence and scope checks alone,
// skipping the permission stage. Mounted where the resource policy already
// carries the role rule: user self-modification is admin-or-self, so gating
// it on a catalog permission would lock every non-admin out of their own
// account.
func (m Middleware) RequireScope(resource ResourceType, param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				m.deny(r, "credential")
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "could not validate credentials")
				return
			}
			if !m.checkScope(w, r, actor, resource, param) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// checkScope runs the existence and scope stages. It writes the response on
// failure and reports whether the chain may continue.
func (m Middleware) checkScope(w http.ResponseWriter, r *http.Request, actor Actor, resource ResourceType, param string) bool {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		httpx.Problem(w, http.StatusNotFound, "Not Found", string(resource)+" not found")
		return false
	}

	scope, err := m.Scopes.FetchResourceScope(r.Context(), resource, id)
	if err != nil {
		if !errors.Is(err, ErrResourceNotFound) {
			m.logger().Error("resource scope lookup", slog.Any("error", err))
		}
		httpx.Problem(w, http.StatusNotFound, "Not Found", string(resource)+" not found")
		return false
	}

	if !m.allows(actor, resource, scope, id) {
		m.deny(r, "scope", slog.String("actor_id", actor.ID.String()),
			slog.String("resource", string(resource)),
			slog.String("resource_id", id.String()))
		httpx.Problem(w, http.StatusForbidden, "Forbidden", ErrResourceDenied.Error())
		return false
	}
	return true
}

// checkPermission runs the first two guard stages. It writes the response on
// failure and reports whether the chain may continue.
func (m Middleware) checkPermission(w http.ResponseWriter, r *http.Request, perm Permission) (Actor, bool) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		m.deny(r, "credential")
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "could not validate credentials")
		return Actor{}, false
	}

	perms := m.Cache.EffectivePermissions(r.Context(), actor.ID, actor.Role)
	if _, granted := perms[perm]; !granted {
		m.deny(r, "permission",
			slog.String("actor_id", actor.ID.String()),
			slog.String("role", string(actor.Role)),
			slog.String("permission", string(perm)))
		httpx.Problem(w, http.StatusForbidden, "Forbidden", ErrPermissionDenied.Error())
		return Actor{}, false
	}
	return actor, true
}

func (m Middleware) allows(actor Actor, resource ResourceType, scope, targetID uuid.UUID) bool {
	switch resource {
	case ResourceDepartment:
		return CanAccessDepartment(actor.Role, actor.DepartmentID, scope)
	case ResourceBudget:
		return CanManageBudget(actor.Role, actor.DepartmentID, scope)
	case ResourceTransaction:
		return CanManageTransaction(actor.Role, actor.DepartmentID, scope)
	case ResourceUser:
		return CanModifyUser(actor.Role, actor.ID, targetID)
	}
	return false
}

func (m Middleware) deny(r *http.Request, stage string, attrs ...any) {
	args := append([]any{slog.String("stage", stage), slog.String("path", r.URL.Path)}, attrs...)
	m.logger().Warn("authorization denied", args...)
	if m.Denials != nil {
		m.Denials.AuthorizationDenied(stage)
	}
}

func (m Middleware) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.Default()
}
