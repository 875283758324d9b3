package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// KeyPrefix namespaces every CampusLedger key in the shared cache store.
const KeyPrefix = "campusledger:"

const permissionKeyPrefix = KeyPrefix + "user_permissions:"

// DefaultPermissionTTL bounds how long a cached permission set survives
// without explicit invalidation.
const DefaultPermissionTTL = time.Hour

// CacheOpRecorder receives the outcome of every permission cache read.
type CacheOpRecorder interface {
	PermissionCacheOp(outcome string)
}

// PermissionCache is a cache-aside layer mapping an actor to their effective
// permission set. The static role tables are the source of truth; the cache
// only spares the hierarchy expansion on hot paths. A stale entry is a
// security defect, so every role or security-state change must call
// Invalidate synchronously.
type PermissionCache struct {
	backend CacheBackend
	logger  *slog.Logger
	ttl     time.Duration
	ops     CacheOpRecorder
	group   singleflight.Group
}

// NewPermissionCache constructs the cache with the default 1 hour TTL.
func NewPermissionCache(backend CacheBackend, logger *slog.Logger) *PermissionCache {
	if backend == nil {
		backend = NoopBackend{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PermissionCache{backend: backend, logger: logger, ttl: DefaultPermissionTTL}
}

// WithTTL overrides the entry TTL. Zero or negative keeps the default.
func (c *PermissionCache) WithTTL(ttl time.Duration) *PermissionCache {
	if ttl > 0 {
		c.ttl = ttl
	}
	return c
}

// WithOps attaches an outcome recorder for cache reads.
func (c *PermissionCache) WithOps(ops CacheOpRecorder) *PermissionCache {
	c.ops = ops
	return c
}

func permissionKey(actorID uuid.UUID) string {
	return permissionKeyPrefix + actorID.String()
}

// EffectivePermissions returns the actor's effective permission set, reading
// through the cache. A corrupt entry is evicted and treated as a miss; an
// unavailable backend degrades to direct recomputation. Neither failure mode
// reaches the caller.
func (c *PermissionCache) EffectivePermissions(ctx context.Context, actorID uuid.UUID, role Role) map[Permission]struct{} {
	key := permissionKey(actorID)

	payload, err := c.backend.Get(ctx, key)
	switch {
	case err == nil:
		if perms, ok := c.decode(ctx, key, actorID, payload); ok {
			c.recordOp("hit")
			return perms
		}
		// corruption handled as a miss
		c.recordOp("corrupt")
	case errors.Is(err, ErrCacheMiss):
		c.recordOp("miss")
	default:
		c.recordOp("degraded")
		c.logger.Warn("permission cache read degraded to recompute",
			slog.String("actor_id", actorID.String()), slog.Any("error", err))
	}

	computed, _, _ := c.group.Do(key, func() (any, error) {
		perms := EffectivePermissions(role)
		c.store(ctx, key, actorID, perms)
		return perms, nil
	})
	return computed.(map[Permission]struct{})
}

// decode parses a cached payload. Returns ok=false after evicting the entry
// when the payload cannot be interpreted.
func (c *PermissionCache) decode(ctx context.Context, key string, actorID uuid.UUID, payload []byte) (map[Permission]struct{}, bool) {
	var values []string
	if err := json.Unmarshal(payload, &values); err != nil {
		c.evictCorrupt(ctx, key, actorID, err)
		return nil, false
	}
	perms := make(map[Permission]struct{}, len(values))
	for _, v := range values {
		perm, err := ParsePermission(v)
		if err != nil {
			c.evictCorrupt(ctx, key, actorID, err)
			return nil, false
		}
		perms[perm] = struct{}{}
	}
	return perms, true
}

func (c *PermissionCache) recordOp(outcome string) {
	if c.ops != nil {
		c.ops.PermissionCacheOp(outcome)
	}
}

func (c *PermissionCache) evictCorrupt(ctx context.Context, key string, actorID uuid.UUID, cause error) {
	c.logger.Warn("permission cache corruption detected, clearing entry",
		slog.String("actor_id", actorID.String()), slog.Any("error", cause))
	if err := c.backend.Delete(ctx, key); err != nil {
		c.logger.Warn("evict corrupt permission entry", slog.Any("error", err))
	}
}

func (c *PermissionCache) store(ctx context.Context, key string, actorID uuid.UUID, perms map[Permission]struct{}) {
	values := make([]string, 0, len(perms))
	for p := range perms {
		values = append(values, string(p))
	}
	payload, err := json.Marshal(values)
	if err != nil {
		c.logger.Warn("encode permission set", slog.Any("error", err))
		return
	}
	if err := c.backend.Set(ctx, key, payload, c.ttl); err != nil {
		c.logger.Warn("permission cache write skipped",
			slog.String("actor_id", actorID.String()), slog.Any("error", err))
	}
}

// Invalidate evicts the actor's cached permission set. Callers must invoke it
// synchronously on role change, two-factor status change, login and account
// deletion. Invalidating an absent entry is a no-op. An unavailable backend is
// logged and ignored: a down store misses every read anyway.
func (c *PermissionCache) Invalidate(ctx context.Context, actorID uuid.UUID) error {
	if err := c.backend.Delete(ctx, permissionKey(actorID)); err != nil {
		if errors.Is(err, ErrCacheUnavailable) {
			c.logger.Warn("permission cache invalidation skipped, backend unavailable",
				slog.String("actor_id", actorID.String()), slog.Any("error", err))
			return nil
		}
		return err
	}
	c.logger.Info("invalidated permission cache", slog.String("actor_id", actorID.String()))
	return nil
}

// InvalidateAll evicts every cached permission set. Used by privileged
// maintenance paths after bulk security changes.
func (c *PermissionCache) InvalidateAll(ctx context.Context) error {
	if err := c.backend.DeleteByPrefix(ctx, permissionKeyPrefix); err != nil {
		if errors.Is(err, ErrCacheUnavailable) {
			c.logger.Warn("permission cache flush skipped, backend unavailable", slog.Any("error", err))
			return nil
		}
		return err
	}
	return nil
}
