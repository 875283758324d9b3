package rbac

import (
	"context"

	"github.com/google/uuid"
)

// Actor is the authenticated identity behind a request. It is built once per
// request from a verified credential and never mutated.
type Actor struct {
	ID           uuid.UUID
	Username     string
	Role         Role
	DepartmentID uuid.UUID // zero when the account has no department
}

// HasScope reports whether the actor carries an organizational scope.
func (a Actor) HasScope() bool {
	return a.DepartmentID != uuid.Nil
}

type actorContextKey struct{}

// ContextWithActor stores the resolved actor in the request context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor placed by the resolver middleware.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}
