// Package auth resolves request credentials into actors and owns the login
// and logout flows.
package auth

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Account represents a user account as authentication sees it.
type Account struct {
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

// ErrInvalidCredentials indicates login failure. The cause (unknown user,
// wrong password, inactive account) is deliberately not distinguished.
var ErrInvalidCredentials = errors.New("invalid credentials")
