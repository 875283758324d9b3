// Package transactions provides CRUD over budget transactions.
package transactions

import (
	"time"

	"github.com/google/uuid"
)

// Transaction types.
const (
	TypeIncome  = "income"
	TypeExpense = "expense"
)

// Transaction is a single income or expense entry against a budget.
type Transaction struct {
	ID              uuid.UUID
	BudgetID        uuid.UUID
	Type            string
	Amount          float64
	Description     string
	ReferenceNumber string
	CreatedBy       *uuid.UUID
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
