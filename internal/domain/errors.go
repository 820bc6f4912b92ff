package domain

import "errors"

// Sentinel errors carried as stable error codes across the HTTP boundary.
// See internal/errmap for the HTTP status/code mapping.
var (
	ErrEmptyID      = errors.New("empty id")
	ErrInvalidInput = errors.New("invalid input")
	ErrMissingField = errors.New("missing field")
	ErrValidation   = errors.New("validation error")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("token invalid")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrOTPInvalid         = errors.New("otp invalid")
	ErrOTPExpired         = errors.New("otp expired")
	ErrRateLimited        = errors.New("rate limited")

	ErrOrderNotFound      = errors.New("order not found")
	ErrOrderCannotCancel  = errors.New("order cannot cancel")
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrInventoryLocked    = errors.New("inventory locked")
	ErrIdempotencyConflict = errors.New("idempotency conflict")
	ErrInventoryNotFound  = errors.New("inventory not found")
	ErrBatchExists        = errors.New("batch already exists")
	ErrPharmacyNotFound   = errors.New("pharmacy not found")
	ErrPharmacyInactive   = errors.New("pharmacy inactive")
	ErrMultiPharmacyOrder = errors.New("order spans more than one pharmacy")

	ErrDeliveryNotFound    = errors.New("delivery not found")
	ErrDeliveryOTPInvalid  = errors.New("delivery otp invalid")
	ErrDriverNotAvailable  = errors.New("driver not available")

	ErrDatabaseError        = errors.New("database error")
	ErrExternalServiceError = errors.New("external service error")
	ErrServiceUnavailable   = errors.New("service unavailable")
	ErrInternal             = errors.New("internal error")
)
