package entity

import "errors"

// Validation errors raised before any network call
var (
	ErrUnknownField     = errors.New("unknown record field")
	ErrInvalidStatus    = errors.New("status is not one of the configured options")
	ErrInvalidAmount    = errors.New("amount sanctioned must be a number")
	ErrInvalidDate      = errors.New("date must be in YYYY-MM-DD format")
	ErrRecordNotFound   = errors.New("record not found")
	ErrSessionNotFound  = errors.New("session not found")
	ErrNotAuthenticated = errors.New("not logged in")
)
