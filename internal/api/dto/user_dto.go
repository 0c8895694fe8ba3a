package dto

import "time"

// UserRegisterRequest payload for new users.
type UserRegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// UserLoginRequest payload for login.
type UserLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserUpdateRequest carries the mutable fields; absent fields stay untouched.
type UserUpdateRequest struct {
	ID        string  `json:"_id"`
	Name      *string `json:"name"`
	Email     *string `json:"email"`
	Password  *string `json:"password"`
	IsBlocked *bool   `json:"isBlocked"`
	IsOnline  *bool   `json:"isOnline"`
}

// MessageResponse is a plain confirmation body.
type MessageResponse struct {
	Message string `json:"message"`
}

// LoginResponse is returned by POST /users/login.
type LoginResponse struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	User      string    `json:"user"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ErrorResponse is the envelope for every failed request.
type ErrorResponse struct {
	Kind    string   `json:"kind"`
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}
