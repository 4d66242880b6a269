package domain

import "errors"

// Domain errors
var (
	ErrLeagueNotFound    = errors.New("no private league found with that code")
	ErrUserNotFound      = errors.New("user not found")
	ErrInvalidLeagueName = errors.New("league name must be provided and be at least 3 characters long")
	ErrInvalidCode       = errors.New("code must be exactly 6 characters long")
	ErrCodeExhausted     = errors.New("could not generate a unique league code after several attempts")
	ErrCodeTaken         = errors.New("league code already in use")
	ErrUnauthorized      = errors.New("missing user identifier")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrInternalError     = errors.New("internal server error")
)

// IsNotFoundError checks if an error is a not-found type error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrLeagueNotFound) || errors.Is(err, ErrUserNotFound)
}

// IsValidationError checks if an error is caused by bad caller input
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidLeagueName) ||
		errors.Is(err, ErrInvalidCode) ||
		errors.Is(err, ErrInvalidRequest)
}
