// Package departments provides CRUD over departments, the organizational
// unit every scope check compares against.
package departments

import (
	"time"

	"github.com/google/uuid"
)

// Department is an organizational unit owning budgets.
type Department struct {
	ID          uuid.UUID
	Name        string
	Code        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
