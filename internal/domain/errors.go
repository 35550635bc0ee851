package domain

import "errors"

var (
	ErrCredentialConflict = errors.New("conflicting credentials")
	ErrCredentialUnknown  = errors.New("unknown or invalid credential")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrDuplicate          = errors.New("already exists")
	ErrInvalidInput       = errors.New("invalid input")
	ErrAccountDisabled    = errors.New("account disabled")
)
