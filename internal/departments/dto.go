package departments

type CreateDepartmentRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Code        string `json:"code" validate:"required,max=20"`
	Description string `json:"description,omitempty" validate:"max=500"`
}

type UpdateDepartmentRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,max=200"`
	Code        *string `json:"code,omitempty" validate:"omitempty,max=20"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=500"`
}

type DepartmentResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
}
