package services

import "errors"

// Error taxonomy for the ledger, codec and formatter surface. Callers match
// with errors.Is; every violation is surfaced synchronously at the call
// that detects it and nothing is retried internally.
var (
	// ErrInvalidArgument signals a missing required parameter or an
	// enumerated parameter (level, fmt) outside its accepted set.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnsupportedFormat signals a bibliographic format tag that is not
	// one of the supported formats.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrNotFound signals an unset file path or one that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrTypeMismatch signals an output path value that is not a string.
	ErrTypeMismatch = errors.New("type mismatch")
)
