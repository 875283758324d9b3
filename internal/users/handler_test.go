package users

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusledger/campusledger/internal/rbac"
)

// repoScopeSource confirms user existence against the mock repo; user policy
// compares identities, so no department scope is resolved.
type repoScopeSource struct {
	repo *mockUserRepo
}

func (s repoScopeSource) FetchResourceScope(ctx context.Context, _ rbac.ResourceType, id uuid.UUID) (uuid.UUID, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return uuid.Nil, rbac.ErrResourceNotFound
	}
	return uuid.Nil, nil
}

func newUsersRouter(t *testing.T, f *usersFixture) chi.Router {
	t.Helper()
	guards := rbac.Middleware{
		Cache:  rbac.NewPermissionCache(rbac.NoopBackend{}, slog.Default()),
		Scopes: repoScopeSource{repo: f.repo},
		Logger: slog.Default(),
	}
	handler := NewHandler(slog.Default(), f.service, guards)
	r := chi.NewRouter()
	r.Route("/users", handler.MountRoutes)
	return r
}

func asActor(req *http.Request, actor rbac.Actor) *http.Request {
	return req.WithContext(rbac.ContextWithActor(req.Context(), actor))
}

func TestSelfServiceTwoFactorToggle(t *testing.T) {
	f := newUsersFixture(t)
	user := f.seedUser(t, "viewer")
	router := newUsersRouter(t, f)

	req := httptest.NewRequest(http.MethodPut, "/users/"+user.ID.String()+"/two-factor",
		strings.NewReader(`{"enabled": true}`))
	req = asActor(req, rbac.Actor{ID: user.ID, Role: rbac.RoleViewer})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	stored, err := f.repo.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.True(t, stored.TwoFactorEnabled)
}

func TestSelfServiceAccountUpdate(t *testing.T) {
	f := newUsersFixture(t)
	user := f.seedUser(t, "viewer")
	router := newUsersRouter(t, f)

	req := httptest.NewRequest(http.MethodPut, "/users/"+user.ID.String(),
		strings.NewReader(`{"email": "new@example.edu"}`))
	req = asActor(req, rbac.Actor{ID: user.ID, Role: rbac.RoleViewer})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	stored, err := f.repo.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "new@example.edu", stored.Email)
}

func TestNonAdminCannotModifyOtherUser(t *testing.T) {
	f := newUsersFixture(t)
	target := f.seedUser(t, "viewer")
	router := newUsersRouter(t, f)

	req := httptest.NewRequest(http.MethodPut, "/users/"+target.ID.String(),
		strings.NewReader(`{"email": "hijack@example.edu"}`))
	req = asActor(req, rbac.Actor{ID: uuid.New(), Role: rbac.RoleFinanceManager})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestAdminModifiesOtherUser(t *testing.T) {
	f := newUsersFixture(t)
	target := f.seedUser(t, "viewer")
	router := newUsersRouter(t, f)

	req := httptest.NewRequest(http.MethodDelete, "/users/"+target.ID.String(), nil)
	req = asActor(req, rbac.Actor{ID: uuid.New(), Role: rbac.RoleAdmin})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	_, err := f.repo.GetByID(context.Background(), target.ID)
	assert.Error(t, err)
}
