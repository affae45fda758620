package service

import (
	"errors"

	"accounts/internal/validation"
)

var (
	ErrValidation         = validation.ErrValidation
	ErrDuplicateUser      = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccessDenied       = errors.New("access denied")
	ErrInvalidToken       = errors.New("invalid token")
	ErrNotFound           = errors.New("user not found")
	ErrForbidden          = errors.New("forbidden")
	ErrAccountLocked      = errors.New("account temporarily locked")
	ErrMFARequired        = errors.New("mfa code required")
	ErrInvalidMFACode     = errors.New("invalid mfa code")
	ErrMFANotConfigured   = errors.New("mfa not configured")
	ErrInternal           = errors.New("internal server error")
)
