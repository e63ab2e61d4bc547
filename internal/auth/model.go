package auth

import (
	"strings"

	"admissions-service/internal/user"
)

// LoginRequest accepts either a username or an email in Username.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	Username string    `json:"username" validate:"required,min=3,max=50"`
	Email    string    `json:"email" validate:"required,email"`
	Password string    `json:"password" validate:"required,min=6"`
	Role     user.Role `json:"role" validate:"omitempty,oneof=admin user applicant"`
}

// Normalize trims identifiers so validation sees the stored values.
func (r *RegisterRequest) Normalize() {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.TrimSpace(r.Email)
}

type LoginResponse struct {
	Token string      `json:"token"`
	User  user.Public `json:"user"`
}

type RegisterResponse struct {
	User user.Public `json:"user"`
}
