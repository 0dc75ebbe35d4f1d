package domain

import "errors"

// ErrInvalidInput marks request payloads that fail validation.
var ErrInvalidInput = errors.New("invalid input")

// Session errors. Each maps to a 401 with its own stable code.
var (
	ErrMissingToken        = errors.New("no token provided")
	ErrMalformedAuthHeader = errors.New("invalid token format")
	ErrInvalidToken        = errors.New("invalid token")
)

// ErrStoreUnavailable wraps any failure of the durable store.
var ErrStoreUnavailable = errors.New("store unavailable")
