package rbac

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*PermissionCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewPermissionCache(NewRedisBackend(client), slog.Default()), mr
}

func TestEffectivePermissionsPopulatesCacheOnMiss(t *testing.T) {
	cache, mr := newTestCache(t)
	actorID := uuid.New()

	perms := cache.EffectivePermissions(context.Background(), actorID, RoleViewer)
	_, ok := perms[PermReadBudget]
	assert.True(t, ok)
	_, ok = perms[PermCreateBudget]
	assert.False(t, ok)

	stored, err := mr.Get(permissionKey(actorID))
	require.NoError(t, err)

	var values []string
	require.NoError(t, json.Unmarshal([]byte(stored), &values))
	assert.ElementsMatch(t, []string{
		"read_user", "read_department", "read_budget", "read_transaction", "read_report",
	}, values)

	ttl := mr.TTL(permissionKey(actorID))
	assert.Equal(t, DefaultPermissionTTL, ttl)
}

func TestEffectivePermissionsServesFromCache(t *testing.T) {
	cache, mr := newTestCache(t)
	actorID := uuid.New()

	// Seed an entry that differs from the role tables; a hit must return the
	// cached value without recomputing.
	payload, err := json.Marshal([]string{"read_user"})
	require.NoError(t, err)
	require.NoError(t, mr.Set(permissionKey(actorID), string(payload)))

	perms := cache.EffectivePermissions(context.Background(), actorID, RoleAdmin)
	assert.Len(t, perms, 1)
	_, ok := perms[PermReadUser]
	assert.True(t, ok)
}

func TestCorruptEntryIsEvictedAndRecomputed(t *testing.T) {
	cache, mr := newTestCache(t)
	actorID := uuid.New()

	require.NoError(t, mr.Set(permissionKey(actorID), "{not json"))

	perms := cache.EffectivePermissions(context.Background(), actorID, RoleViewer)
	_, ok := perms[PermReadBudget]
	assert.True(t, ok, "corruption must fall back to recomputation")

	// The recompute repopulates the key with a valid payload.
	stored, err := mr.Get(permissionKey(actorID))
	require.NoError(t, err)
	var values []string
	require.NoError(t, json.Unmarshal([]byte(stored), &values))
}

func TestUnknownCachedPermissionTreatedAsCorruption(t *testing.T) {
	cache, mr := newTestCache(t)
	actorID := uuid.New()

	payload, err := json.Marshal([]string{"read_user", "launch_missiles"})
	require.NoError(t, err)
	require.NoError(t, mr.Set(permissionKey(actorID), string(payload)))

	perms := cache.EffectivePermissions(context.Background(), actorID, RoleViewer)
	assert.Equal(t, EffectivePermissions(RoleViewer), perms)
}

func TestInvalidateRemovesEntry(t *testing.T) {
	cache, mr := newTestCache(t)
	actorID := uuid.New()

	cache.EffectivePermissions(context.Background(), actorID, RoleViewer)
	require.True(t, mr.Exists(permissionKey(actorID)))

	require.NoError(t, cache.Invalidate(context.Background(), actorID))
	assert.False(t, mr.Exists(permissionKey(actorID)))

	// Invalidating an absent entry is a no-op.
	require.NoError(t, cache.Invalidate(context.Background(), actorID))
}

func TestCacheCoherenceAfterRoleChange(t *testing.T) {
	cache, _ := newTestCache(t)
	actorID := uuid.New()
	ctx := context.Background()

	before := cache.EffectivePermissions(ctx, actorID, RoleViewer)
	_, ok := before[PermCreateBudget]
	require.False(t, ok)

	// Role change: invalidate, then the next read computes against the new
	// role. No window serves the old set.
	require.NoError(t, cache.Invalidate(ctx, actorID))

	after := cache.EffectivePermissions(ctx, actorID, RoleDepartmentHead)
	_, ok = after[PermCreateBudget]
	assert.True(t, ok)
}

func TestBackendOutageDegradesToRecompute(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewPermissionCache(NewRedisBackend(client), slog.Default())
	actorID := uuid.New()

	mr.Close()

	perms := cache.EffectivePermissions(context.Background(), actorID, RoleFinanceManager)
	assert.Equal(t, EffectivePermissions(RoleFinanceManager), perms)

	// Invalidation against a down backend is swallowed.
	assert.NoError(t, cache.Invalidate(context.Background(), actorID))
}

func TestNoopBackendAlwaysRecomputes(t *testing.T) {
	cache := NewPermissionCache(NoopBackend{}, slog.Default())
	actorID := uuid.New()

	perms := cache.EffectivePermissions(context.Background(), actorID, RoleAdmin)
	assert.Equal(t, EffectivePermissions(RoleAdmin), perms)
	assert.NoError(t, cache.Invalidate(context.Background(), actorID))
	assert.NoError(t, cache.InvalidateAll(context.Background()))
}

func TestInvalidateAllClearsOnlyPermissionKeys(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	first := uuid.New()
	second := uuid.New()
	cache.EffectivePermissions(ctx, first, RoleViewer)
	cache.EffectivePermissions(ctx, second, RoleAdmin)
	require.NoError(t, mr.Set(KeyPrefix+"session:abc", "keep"))

	require.NoError(t, cache.InvalidateAll(ctx))

	assert.False(t, mr.Exists(permissionKey(first)))
	assert.False(t, mr.Exists(permissionKey(second)))
	assert.True(t, mr.Exists(KeyPrefix+"session:abc"))
}

type outcomeCounter struct {
	outcomes []string
}

func (o *outcomeCounter) PermissionCacheOp(outcome string) {
	o.outcomes = append(o.outcomes, outcome)
}

func TestCacheReportsReadOutcomes(t *testing.T) {
	cache, mr := newTestCache(t)
	ops := &outcomeCounter{}
	cache.WithOps(ops)
	actorID := uuid.New()

	// cold read, then a served one
	cache.EffectivePermissions(context.Background(), actorID, RoleViewer)
	cache.EffectivePermissions(context.Background(), actorID, RoleViewer)
	assert.Equal(t, []string{"miss", "hit"}, ops.outcomes)

	// corrupt entry
	require.NoError(t, mr.Set(permissionKey(actorID), "{not json"))
	cache.EffectivePermissions(context.Background(), actorID, RoleViewer)
	assert.Equal(t, "corrupt", ops.outcomes[2])

	// backend down
	mr.Close()
	cache.EffectivePermissions(context.Background(), actorID, RoleViewer)
	assert.Equal(t, "degraded", ops.outcomes[len(ops.outcomes)-1])
}

func TestWithTTLOverridesDefault(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewPermissionCache(NewRedisBackend(client), slog.Default()).WithTTL(10 * time.Minute)
	actorID := uuid.New()

	cache.EffectivePermissions(context.Background(), actorID, RoleViewer)
	assert.Equal(t, 10*time.Minute, mr.TTL(permissionKey(actorID)))
}
