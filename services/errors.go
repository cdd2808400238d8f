package services

import "errors"

// Sentinel errors shared by the stores and surfaced to both the HTTP
// controllers and the socket handlers. Callers match with errors.Is.
var (
	ErrValidation   = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrRateLimited  = errors.New("rate limit exceeded")
)
