package dto

import "github.com/noah-isme/gov-portal-api/internal/models"

// CreateUserRequest provisions an account from the admin console.
type CreateUserRequest struct {
	Email    string          `json:"email" validate:"required,email"`
	FullName string          `json:"full_name" validate:"required,max=200"`
	Phone    *string         `json:"phone" validate:"omitempty,e164"`
	Role     models.UserRole `json:"role" validate:"required,oneof=SUPERADMIN ADMIN EMPLOYEE RESIDENT"`
	Active   bool            `json:"active"`
	Password string          `json:"password" validate:"required,min=8"`
}

// UpdateUserRequest replaces the mutable profile fields of an account.
type UpdateUserRequest struct {
	FullName string          `json:"full_name" validate:"required,max=200"`
	Phone    *string         `json:"phone" validate:"omitempty,e164"`
	Role     models.UserRole `json:"role" validate:"required,oneof=SUPERADMIN ADMIN EMPLOYEE RESIDENT"`
	Active   *bool           `json:"active"`
}
