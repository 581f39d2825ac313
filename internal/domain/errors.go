package domain

import (
	apperrors "github.com/utafrali/identity/pkg/errors"
)

// Sentinel errors returned by the authentication flows. Each is an
// *apperrors.AppError, so callers match with errors.Is and the HTTP layer
// reads status and code with errors.As.
var (
	ErrConflict           = apperrors.Conflict("The user with this email already exists in the system")
	ErrUserNotFound       = apperrors.NotFound("The user with this email does not exist in the system.")
	ErrInvalidToken       = apperrors.BadRequest("INVALID_TOKEN", "Invalid token")
	ErrInvalidCredentials = apperrors.BadRequest("INVALID_CREDENTIALS", "Incorrect email or password")
	ErrInactiveAccount    = apperrors.BadRequest("INACTIVE_ACCOUNT", "Inactive user")
	ErrAlreadyActive      = apperrors.BadRequest("ALREADY_ACTIVE", "The user already activated.")
	ErrPasswordTooLong    = apperrors.BadRequest("PASSWORD_TOO_LONG", "Password must be at most 72 bytes")
	ErrDeliveryFailure    = apperrors.BadGateway("DELIVERY_FAILED", "Failed to send email")
)
