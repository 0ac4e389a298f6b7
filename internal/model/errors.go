package model

import "errors"

var (
	// ErrValidation is returned when a mutation references unknown entities or carries invalid fields.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned when resolution is requested for an unknown config item.
	ErrNotFound = errors.New("not found")
	// ErrBackend matches every BackendError.
	ErrBackend = errors.New("persistence backend failure")
)

// BackendError reports a failed persistence gateway call.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return "backend " + e.Op + ": " + e.Err.Error()
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrBackend) match any BackendError.
func (e *BackendError) Is(target error) bool {
	return target == ErrBackend
}
