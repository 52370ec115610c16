package dto

import (
	"time"

	"github.com/spec-kit/service-queue/internal/domain"
)

// RegisterPayload creates a customer account.
type RegisterPayload struct {
	Name        string `json:"name" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	CompanyCode string `json:"company_code" validate:"required"`
}

// LoginPayload authenticates any role.
type LoginPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ChangePasswordPayload rotates the caller's password.
type ChangePasswordPayload struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// PasswordResetRequestPayload starts the reset flow.
type PasswordResetRequestPayload struct {
	Email string `json:"email" validate:"required,email"`
}

// PasswordResetConfirmPayload consumes a reset token.
type PasswordResetConfirmPayload struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// AuthResponse carries the issued token and its subject.
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

// UserResponse projection. Password hashes never leave the service.
type UserResponse struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	CompanyID *string     `json:"company_id"`
	Active    bool        `json:"active"`
	CreatedAt time.Time   `json:"created_at"`
}
