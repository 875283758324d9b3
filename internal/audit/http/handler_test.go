package audithttp

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusledger/campusledger/internal/audit"
	"github.com/campusledger/campusledger/internal/rbac"
)

type stubAuditRepo struct {
	rows       []audit.Record
	gotFilters audit.Filters
	purged     int64
	purgedAt   time.Time
}

func (s *stubAuditRepo) Window(_ context.Context, filters audit.Filters, limit, offset int) ([]audit.Record, error) {
	s.gotFilters = filters
	if offset >= len(s.rows) {
		return nil, nil
	}
	end := offset + limit
	if end > len(s.rows) {
		end = len(s.rows)
	}
	return s.rows[offset:end], nil
}

func (s *stubAuditRepo) Purge(_ context.Context, olderThan time.Time) (int64, error) {
	s.purgedAt = olderThan
	return s.purged, nil
}

type auditSink struct {
	actions []string
}

func (a *auditSink) Exec(_ context.Context, _ string, args ...any) (pgconn.CommandTag, error) {
	if action, ok := args[2].(string); ok {
		a.actions = append(a.actions, action)
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

type noScopes struct{}

func (noScopes) FetchResourceScope(context.Context, rbac.ResourceType, uuid.UUID) (uuid.UUID, error) {
	return uuid.Nil, rbac.ErrResourceNotFound
}

func newAuditRouter(t *testing.T, repo *stubAuditRepo, sink *auditSink, cache *rbac.PermissionCache) chi.Router {
	t.Helper()
	if cache == nil {
		cache = rbac.NewPermissionCache(rbac.NoopBackend{}, slog.Default())
	}
	guards := rbac.Middleware{
		Cache:  cache,
		Scopes: noScopes{},
		Logger: slog.Default(),
	}
	handler := NewHandler(slog.Default(), audit.NewService(repo),
		audit.NewRecorder(sink, slog.Default()), guards, cache, 365*24*time.Hour)
	r := chi.NewRouter()
	r.Route("/audit-logs", handler.MountRoutes)
	return r
}

func asActor(req *http.Request, actor rbac.Actor) *http.Request {
	return req.WithContext(rbac.ContextWithActor(req.Context(), actor))
}

func TestTimelineRequiresReadAuditPermission(t *testing.T) {
	router := newAuditRouter(t, &stubAuditRepo{}, &auditSink{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/audit-logs", nil)
	req = asActor(req, rbac.Actor{ID: uuid.New(), Role: rbac.RoleFinanceManager})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestTimelineReturnsRecordsWithPaging(t *testing.T) {
	actorID := uuid.New()
	repo := &stubAuditRepo{rows: []audit.Record{
		{ID: uuid.New(), ActorID: &actorID, Action: audit.ActionUpdate, ResourceType: "BUDGET", At: time.Now().UTC()},
	}}
	router := newAuditRouter(t, repo, &auditSink{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/audit-logs?action=UPDATE&resource_type=BUDGET&from=2026-01-01T00:00:00Z", nil)
	req = asActor(req, rbac.Actor{ID: uuid.New(), Role: rbac.RoleAdmin})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Records []map[string]any `json:"records"`
		Paging  map[string]any   `json:"paging"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Records, 1)
	assert.Equal(t, "UPDATE", body.Records[0]["action"])
	assert.Equal(t, false, body.Paging["has_next"])

	assert.Equal(t, "UPDATE", repo.gotFilters.Action)
	assert.Equal(t, "BUDGET", repo.gotFilters.ResourceType)
	assert.Equal(t, 2026, repo.gotFilters.From.Year())
}

func TestPurgeRequiresManagePermissionAndIsAudited(t *testing.T) {
	repo := &stubAuditRepo{purged: 17}
	sink := &auditSink{}
	router := newAuditRouter(t, repo, sink, nil)

	// Finance manager lacks manage_audit.
	req := httptest.NewRequest(http.MethodDelete, "/audit-logs", nil)
	req = asActor(req, rbac.Actor{ID: uuid.New(), Role: rbac.RoleFinanceManager})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Empty(t, sink.actions)

	req = httptest.NewRequest(http.MethodDelete, "/audit-logs?retention_days=30", nil)
	req = asActor(req, rbac.Actor{ID: uuid.New(), Role: rbac.RoleAdmin})
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, float64(17), body["deleted"])

	// The purge itself lands in the audit trail.
	assert.Equal(t, []string{audit.ActionPurge}, sink.actions)
	assert.WithinDuration(t, time.Now().UTC().Add(-30*24*time.Hour), repo.purgedAt, time.Minute)
}

func TestPurgeFlushesCachedPermissions(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := rbac.NewPermissionCache(rbac.NewRedisBackend(client), slog.Default())

	key := rbac.KeyPrefix + "user_permissions:" + uuid.NewString()
	require.NoError(t, mr.Set(key, `["read_budget"]`))
	require.NoError(t, mr.Set(rbac.KeyPrefix+"session:abc", "keep"))

	router := newAuditRouter(t, &stubAuditRepo{purged: 3}, &auditSink{}, cache)

	req := httptest.NewRequest(http.MethodDelete, "/audit-logs?retention_days=30", nil)
	req = asActor(req, rbac.Actor{ID: uuid.New(), Role: rbac.RoleAdmin})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, mr.Exists(key), "purge must flush cached permission sets")
	assert.True(t, mr.Exists(rbac.KeyPrefix+"session:abc"), "only permission keys are flushed")
}

func TestPurgeRejectsInvalidRetention(t *testing.T) {
	router := newAuditRouter(t, &stubAuditRepo{}, &auditSink{}, nil)

	req := httptest.NewRequest(http.MethodDelete, "/audit-logs?retention_days=-5", nil)
	req = asActor(req, rbac.Actor{ID: uuid.New(), Role: rbac.RoleAdmin})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
