package services

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrNotMember          = errors.New("not a member of this company")
	ErrAlreadyMember      = errors.New("user is already a member of this company")
	ErrCooldown           = errors.New("invitation cooldown active")
	ErrInvalidStatus      = errors.New("invalid status transition")
	ErrOwnerCannotLeave   = errors.New("the owner cannot leave the company")
	ErrInvalidInput       = errors.New("invalid input")
	ErrNotConfigured      = errors.New("not configured")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTOTPRequired       = errors.New("2FA code required")
	ErrInvalidTOTP        = errors.New("invalid 2FA code")
	ErrSessionExpired     = errors.New("invalid or expired refresh token")
)
