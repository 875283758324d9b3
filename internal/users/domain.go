// Package users manages user accounts. Every state change here is audited,
// and changes that affect authorization (role, two-factor status, deletion)
// synchronously invalidate the actor's cached permission set.
package users

import (
	"time"

	"github.com/google/uuid"
)

// User is a managed account.
type User struct {
	ID               uuid.UUID
	Username         string
	Email            string
	PasswordHash     string
	Role             string
	DepartmentID     uuid.UUID // zero when unassigned
	IsActive         bool
	TwoFactorEnabled bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
