package errors

import "errors"

var (
	ErrInvalidInput       = errors.New("verification request is invalid")
	ErrInvalidStatus      = errors.New("status must be verified or rejected")
	ErrDuplicateCase      = errors.New("subject already has an outstanding verification case")
	ErrCaseNotFound       = errors.New("verification case not found")
	ErrCaseAlreadyDecided = errors.New("verification case already reached a terminal status")
)
