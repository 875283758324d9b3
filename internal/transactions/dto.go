package transactions

type CreateTransactionRequest struct {
	BudgetID        string  `json:"budget_id" validate:"required,uuid4"`
	Type            string  `json:"type" validate:"required,oneof=income expense"`
	Amount          float64 `json:"amount" validate:"required,gt=0"`
	Description     string  `json:"description" validate:"max=500"`
	ReferenceNumber string  `json:"reference_number" validate:"max=100"`
}

type UpdateTransactionRequest struct {
	Amount          *float64 `json:"amount,omitempty" validate:"omitempty,gt=0"`
	Description     *string  `json:"description,omitempty" validate:"omitempty,max=500"`
	ReferenceNumber *string  `json:"reference_number,omitempty" validate:"omitempty,max=100"`
}

type TransactionResponse struct {
	ID              string  `json:"id"`
	BudgetID        string  `json:"budget_id"`
	Type            string  `json:"type"`
	Amount          float64 `json:"amount"`
	Description     string  `json:"description"`
	ReferenceNumber string  `json:"reference_number"`
	CreatedBy       string  `json:"created_by,omitempty"`
	CreatedAt       string  `json:"created_at"`
}
