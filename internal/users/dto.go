package users

type CreateUserRequest struct {
	Username     string  `json:"username" validate:"required,min=3,max=100"`
	Email        string  `json:"email" validate:"required,email"`
	Password     string  `json:"password" validate:"required,min=8"`
	Role         string  `json:"role" validate:"required"`
	DepartmentID *string `json:"department_id,omitempty" validate:"omitempty,uuid4"`
}

type UpdateUserRequest struct {
	Email        *string `json:"email,omitempty" validate:"omitempty,email"`
	Password     *string `json:"password,omitempty" validate:"omitempty,min=8"`
	Role         *string `json:"role,omitempty"`
	DepartmentID *string `json:"department_id,omitempty" validate:"omitempty,uuid4"`
	IsActive     *bool   `json:"is_active,omitempty"`
}

type TwoFactorRequest struct {
	Enabled bool `json:"enabled"`
}

type UserResponse struct {
	ID               string  `json:"id"`
	Username         string  `json:"username"`
	Email            string  `json:"email"`
	Role             string  `json:"role"`
	DepartmentID     *string `json:"department_id,omitempty"`
	IsActive         bool    `json:"is_active"`
	TwoFactorEnabled bool    `json:"two_factor_enabled"`
}
