package dto

import (
	"time"
)

// AdminCreateUserPayload provisions an account with any role.
type AdminCreateUserPayload struct {
	Name        string  `json:"name" validate:"required"`
	Email       string  `json:"email" validate:"required,email"`
	Password    string  `json:"password" validate:"required,min=8"`
	Role        string  `json:"role" validate:"required"`
	CompanyCode *string `json:"company_code"`
}

// AdminUpdateUserPayload renames or toggles an account.
type AdminUpdateUserPayload struct {
	Name   *string `json:"name"`
	Active *bool   `json:"active"`
}

// CreateCompanyPayload provisions a tenant.
type CreateCompanyPayload struct {
	Name string `json:"name" validate:"required"`
	Code string `json:"code" validate:"required"`
}

// UpdateCompanyPayload renames or toggles a tenant.
type UpdateCompanyPayload struct {
	Name   *string `json:"name"`
	Active *bool   `json:"active"`
}

// CompanyResponse projection.
type CompanyResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
