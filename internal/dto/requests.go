package dto

import "github.com/shopspring/decimal"

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// GoogleLoginRequest carries a Google ID token obtained by the client
type GoogleLoginRequest struct {
	IDToken string `json:"idToken" binding:"required"`
}

// ForgotPasswordRequest starts or repeats password recovery
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// VerifyOTPRequest checks a recovery code without consuming it
type VerifyOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required"`
}

// ResetPasswordRequest completes recovery with either email+otp or a link token
type ResetPasswordRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	Token       string `json:"token"`
	NewPassword string `json:"new_password" binding:"required"`
}

// InitializeDonationRequest starts a checkout
type InitializeDonationRequest struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency" binding:"required"`
}
