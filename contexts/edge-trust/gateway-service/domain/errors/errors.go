package errors

import "errors"

var (
	ErrMissingToken = errors.New("authentication required")
	ErrInvalidToken = errors.New("bearer token is invalid or expired")
)
