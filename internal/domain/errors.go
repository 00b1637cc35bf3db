package domain

import "errors"

var (
	ErrUnauthorized           = errors.New("unauthorized")
	ErrForbidden              = errors.New("forbidden")
	ErrInvalidTreeParams      = errors.New("invalid tree parameters")
	ErrTreeAlreadyInitialized = errors.New("tree already initialized")
	ErrTreeNotFound           = errors.New("tree not found")
	ErrTreeCapacityExceeded   = errors.New("tree capacity exceeded")
	ErrRootWindowExceeded     = errors.New("root outside concurrent change window")
	ErrLeafVerificationFailed = errors.New("leaf verification failed")
	ErrConcurrentRootMismatch = errors.New("concurrent root mismatch")
	ErrAuthorityDerivation    = errors.New("authority derivation failed")
	ErrEventConflict          = errors.New("concurrent event append conflict")
	ErrNoteTooLarge           = errors.New("note too large")
	ErrNotFound               = errors.New("not found")
)
