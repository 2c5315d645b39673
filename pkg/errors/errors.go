package errors

import (
	"errors"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrNilUser            = errors.New("user is nil")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInternal           = errors.New("internal error")

	// ErrHashFailure is returned when the password hashing primitive rejects its input.
	ErrHashFailure = errors.New("password hash failure")
	// ErrInvalidToken covers every reason a bearer token can be refused.
	ErrInvalidToken  = errors.New("invalid token")
	ErrReservedClaim = errors.New("reserved claim")

	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)
