package domain

import "errors"

var (
	ErrValidation         = errors.New("validation error")
	ErrDuplicateIdentity  = errors.New("duplicate identity")
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredential  = errors.New("invalid credential")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrTimeout            = errors.New("timeout")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// Code returns the external name of the error kind carried by err, or
// "InternalError" when err wraps none of the sentinels.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "ValidationError"
	case errors.Is(err, ErrDuplicateIdentity):
		return "DuplicateIdentity"
	case errors.Is(err, ErrNotFound):
		return "NotFound"
	case errors.Is(err, ErrInvalidCredential):
		return "InvalidCredential"
	case errors.Is(err, ErrForbidden):
		return "Forbidden"
	case errors.Is(err, ErrInvalidTransition):
		return "InvalidTransition"
	case errors.Is(err, ErrTimeout):
		return "Timeout"
	case errors.Is(err, ErrStorageUnavailable):
		return "StorageUnavailable"
	default:
		return "InternalError"
	}
}
