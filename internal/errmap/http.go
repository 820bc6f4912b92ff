package errmap

import (
	"errors"
	"net/http"

	"github.com/medplatform/orders/internal/domain"
)

// HTTPError is the {error_code, http status, message} triple that every
// handler response's `error_code`/`message` fields are built from, per §6's
// uniform `{success, data?, error_code?, message?, details?}` envelope.
type HTTPError struct {
	StatusCode int
	Code       string
	Message    string
}

// ToHTTPError maps a domain sentinel to its HTTP representation via
// errors.Is, covering the full §7 taxonomy. Unknown errors map to a generic
// 500 INTERNAL_ERROR so internals are never exposed to clients.
func ToHTTPError(err error) HTTPError {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return HTTPError{http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid credentials"}
	case errors.Is(err, domain.ErrTokenExpired):
		return HTTPError{http.StatusUnauthorized, "TOKEN_EXPIRED", "token expired"}
	case errors.Is(err, domain.ErrTokenInvalid):
		return HTTPError{http.StatusUnauthorized, "TOKEN_INVALID", "token invalid"}
	case errors.Is(err, domain.ErrUnauthorized):
		return HTTPError{http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized"}
	case errors.Is(err, domain.ErrForbidden):
		return HTTPError{http.StatusForbidden, "FORBIDDEN", "forbidden"}
	case errors.Is(err, domain.ErrUserExists):
		return HTTPError{http.StatusConflict, "USER_EXISTS", "user already exists"}
	case errors.Is(err, domain.ErrUserNotFound):
		return HTTPError{http.StatusNotFound, "USER_NOT_FOUND", "user not found"}
	case errors.Is(err, domain.ErrOTPInvalid):
		return HTTPError{http.StatusBadRequest, "OTP_INVALID", "otp invalid"}
	case errors.Is(err, domain.ErrOTPExpired):
		return HTTPError{http.StatusBadRequest, "OTP_EXPIRED", "otp expired"}
	case errors.Is(err, domain.ErrRateLimited):
		return HTTPError{http.StatusTooManyRequests, "RATE_LIMITED", "rate limited"}

	case errors.Is(err, domain.ErrValidation):
		return HTTPError{http.StatusBadRequest, "VALIDATION_ERROR", "validation error"}
	case errors.Is(err, domain.ErrInvalidInput):
		return HTTPError{http.StatusBadRequest, "INVALID_INPUT", "invalid input"}
	case errors.Is(err, domain.ErrMissingField):
		return HTTPError{http.StatusBadRequest, "MISSING_FIELD", "missing field"}

	case errors.Is(err, domain.ErrOrderNotFound):
		return HTTPError{http.StatusNotFound, "ORDER_NOT_FOUND", "order not found"}
	case errors.Is(err, domain.ErrOrderCannotCancel):
		return HTTPError{http.StatusConflict, "ORDER_CANNOT_CANCEL", "order cannot be cancelled"}
	case errors.Is(err, domain.ErrInvalidTransition):
		return HTTPError{http.StatusConflict, "INVALID_TRANSITION", "invalid order transition"}
	case errors.Is(err, domain.ErrInsufficientStock):
		return HTTPError{http.StatusConflict, "INSUFFICIENT_STOCK", "insufficient stock"}
	case errors.Is(err, domain.ErrInventoryLocked):
		return HTTPError{http.StatusConflict, "INVENTORY_LOCKED", "inventory locked"}
	case errors.Is(err, domain.ErrIdempotencyConflict):
		return HTTPError{http.StatusConflict, "IDEMPOTENCY_CONFLICT", "idempotency conflict"}
	case errors.Is(err, domain.ErrInventoryNotFound):
		return HTTPError{http.StatusNotFound, "INVENTORY_NOT_FOUND", "inventory row not found"}
	case errors.Is(err, domain.ErrBatchExists):
		return HTTPError{http.StatusConflict, "BATCH_EXISTS", "batch already exists"}
	case errors.Is(err, domain.ErrPharmacyNotFound):
		return HTTPError{http.StatusNotFound, "BAD_REQUEST", "pharmacy not found"}
	case errors.Is(err, domain.ErrPharmacyInactive):
		return HTTPError{http.StatusBadRequest, "BAD_REQUEST", "pharmacy inactive"}
	case errors.Is(err, domain.ErrMultiPharmacyOrder):
		return HTTPError{http.StatusBadRequest, "BAD_REQUEST", "order items must share one pharmacy"}

	case errors.Is(err, domain.ErrDeliveryNotFound):
		return HTTPError{http.StatusNotFound, "DELIVERY_NOT_FOUND", "delivery not found"}
	case errors.Is(err, domain.ErrDeliveryOTPInvalid):
		return HTTPError{http.StatusBadRequest, "DELIVERY_OTP_INVALID", "delivery otp invalid"}
	case errors.Is(err, domain.ErrDriverNotAvailable):
		return HTTPError{http.StatusConflict, "DRIVER_NOT_AVAILABLE", "driver not available"}

	case errors.Is(err, domain.ErrDatabaseError):
		return HTTPError{http.StatusInternalServerError, "DATABASE_ERROR", "database error"}
	case errors.Is(err, domain.ErrExternalServiceError):
		return HTTPError{http.StatusBadGateway, "EXTERNAL_SERVICE_ERROR", "external service error"}
	case errors.Is(err, domain.ErrServiceUnavailable):
		return HTTPError{http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "service unavailable"}
	default:
		return HTTPError{http.StatusInternalServerError, "INTERNAL_ERROR", "internal error"}
	}
}
