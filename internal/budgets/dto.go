package budgets

type CreateBudgetRequest struct {
	DepartmentID string  `json:"department_id" validate:"required,uuid4"`
	FiscalYear   int     `json:"fiscal_year" validate:"required,gte=2000,lte=2100"`
	TotalAmount  float64 `json:"total_amount" validate:"gte=0"`
}

type UpdateBudgetRequest struct {
	FiscalYear  *int     `json:"fiscal_year,omitempty" validate:"omitempty,gte=2000,lte=2100"`
	TotalAmount *float64 `json:"total_amount,omitempty" validate:"omitempty,gte=0"`
}

type BudgetResponse struct {
	ID           string  `json:"id"`
	DepartmentID string  `json:"department_id"`
	FiscalYear   int     `json:"fiscal_year"`
	TotalAmount  float64 `json:"total_amount"`
	SpentAmount  float64 `json:"spent_amount"`
}
