package domain

import "errors"

// Sentinel errors for the engine's failure taxonomy. Handlers map these to
// transport status codes; everything else is treated as internal.
var (
	ErrUnauthenticated      = errors.New("unauthenticated")
	ErrPermissionDenied     = errors.New("permission denied")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrNotFound             = errors.New("not found")
	ErrFailedPrecondition   = errors.New("failed precondition")
	ErrUnavailable          = errors.New("unavailable")
	ErrInternal             = errors.New("internal")
	ErrSerializationFailure = errors.New("serialization failure")
)
