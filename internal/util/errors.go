package util

import "errors"

// Common application-specific errors.
//
// Business declines (card limit, missing parent entities) are sentinel
// values so callers can decide whether they are fatal; I/O and persistence
// failures are wrapped and propagated as hard errors instead.
var (
	ErrNotFound          = errors.New("resource not found")
	ErrInvalidInput      = errors.New("invalid input provided")
	ErrUserNotFound      = errors.New("user not found")
	ErrAccountNotFound   = errors.New("account not found")
	ErrCardNotFound      = errors.New("card not found")
	ErrCardLimitExceeded = errors.New("card limit exceeded")
	ErrDuplicateEntry    = errors.New("duplicate entry")
	ErrUnauthorized      = errors.New("unauthorized")
)

// IsError reports whether err matches the target sentinel anywhere in its
// wrap chain.
func IsError(err, target error) bool {
	return errors.Is(err, target)
}
