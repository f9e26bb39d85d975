package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrAccountExists       = errors.New("account already exists")
	ErrOTPInvalidOrExpired = errors.New("otp is invalid or has expired")
	ErrOTPMismatch         = errors.New("otp does not match")
	ErrAccountLocked       = errors.New("too many failed otp attempts")
	ErrAccountNotFound     = errors.New("account not found")
	ErrAlreadyVerified     = errors.New("email is already verified")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrUnverified          = errors.New("email is not verified")
	ErrAccountInactive     = errors.New("account is not active")
	ErrNotificationFailed  = errors.New("failed to deliver otp")
	ErrUnauthorized        = errors.New("not authorized")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrProductNotFound     = errors.New("product not found")
	ErrAddressNotFound     = errors.New("address not found")
	ErrRateLimited         = errors.New("rate limit exceeded")
	ErrUnavailable         = errors.New("feature not configured")
)

// ValidationError carries a caller-facing message and unwraps to ErrInvalidInput.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidInput, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

func invalid(message string) error {
	return &ValidationError{Message: message}
}

// MismatchError reports a wrong OTP that did not exhaust the attempt budget.
type MismatchError struct {
	AttemptsLeft int
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s: %d attempts left", ErrOTPMismatch, e.AttemptsLeft)
}

func (e *MismatchError) Unwrap() error { return ErrOTPMismatch }

// UnverifiedError identifies the account so the caller can route to resend.
type UnverifiedError struct {
	AccountID string
	Email     string
}

func (e *UnverifiedError) Error() string {
	return fmt.Sprintf("%s: account %s", ErrUnverified, e.AccountID)
}

func (e *UnverifiedError) Unwrap() error { return ErrUnverified }
