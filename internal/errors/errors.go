package errors

import "errors"

var (
	ErrNotFound            = errors.New("endpoint not found")
	ErrAlreadyExists       = errors.New("endpoint already exists")
	ErrCASConflict         = errors.New("compare-and-swap conflict")
	ErrInvalidState        = errors.New("invalid endpoint state for operation")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrUnsupportedEnv      = errors.New("unsupported environment")
	ErrUnknownInstanceType = errors.New("unknown instance type")
	ErrUnknownAccelerator  = errors.New("unknown accelerator type")
	ErrIdempotencyMismatch = errors.New("idempotency key reused with different request")
	ErrUnsupportedImage    = errors.New("image must have 3 color channels")
	ErrImageTooSmall       = errors.New("image smaller than crop window after resize")
	ErrClassCountMismatch  = errors.New("score vector length does not match label table")
	ErrEndpointNotReady    = errors.New("endpoint did not become ready before deadline")
	ErrShapeMismatch       = errors.New("tensor shape does not match model input")
)
