package dto

import "time"

// RegisterRequest is the payload for POST /auth/register.
// Presence is checked by binding; shape rules are applied by the service.
type RegisterRequest struct {
	Username string `json:"username" binding:"required,username" example:"alice"`
	Email    string `json:"email" binding:"required" example:"alice@example.com"`
	Password string `json:"password" binding:"required" example:"secret123"`
	Role     string `json:"role,omitempty" example:"user"`
}

// LoginRequest is the payload for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required" example:"alice@example.com"`
	Password string `json:"password" binding:"required" example:"secret123"`
}

type ChangeUsernameRequest struct {
	Username string `json:"username" binding:"required,username" example:"alice_2"`
}

type ChangeEmailRequest struct {
	Email string `json:"email" binding:"required" example:"alice@new.example.com"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required" example:"alice@example.com"`
}

type ResetPasswordRequest struct {
	NewPassword string `json:"newPassword" binding:"required"`
}

// GoogleExchangeCodeRequest carries the authorization code from the Google consent redirect.
type GoogleExchangeCodeRequest struct {
	Code string `json:"code" binding:"required"`
}

// LoginResponse is the data of a successful login.
type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      UserResponse `json:"user"`
}

// ForgotPasswordResponse is only non-empty in demo mode.
type ForgotPasswordResponse struct {
	ResetLink  string `json:"resetLink,omitempty"`
	ResetToken string `json:"resetToken,omitempty"`
}

// RoleProbeResponse is the data returned by the role-gated probe endpoints.
type RoleProbeResponse struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}
