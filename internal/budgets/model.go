// Package budgets provides CRUD over departmental budgets.
package budgets

import (
	"time"

	"github.com/google/uuid"
)

// Budget is a fiscal-year allocation owned by a department.
type Budget struct {
	ID           uuid.UUID
	DepartmentID uuid.UUID
	FiscalYear   int
	TotalAmount  float64
	SpentAmount  float64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
