package identity

import "errors"

var (
	// ErrInvalidCredentials covers both unknown email and wrong password so
	// responses cannot be used for account enumeration.
	ErrInvalidCredentials = errors.New("identity: incorrect email or password")

	ErrTokenNotFound = errors.New("identity: refresh token is not found")
	ErrTokenExpired  = errors.New("identity: refresh token was expired")
	ErrUnauthorized  = errors.New("identity: unauthorized")
	ErrNotFound      = errors.New("identity: not found")
	ErrInvalidInput  = errors.New("identity: invalid input")
	ErrAlreadyExists = errors.New("identity: already exists")
)
