package user

import "time"

type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required"`
	Role     Role   `json:"role,omitempty" validate:"omitempty,oneof=patient provider"`
}

type RegisterResponse struct {
	ID     int64  `json:"user_id"`
	Status string `json:"status"`
}

// Session - выданный сервером JWT и момент его истечения.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
