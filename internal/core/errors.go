package core

import "errors"

// Failure taxonomy shared across the backend. Callers classify with
// errors.Is; handlers translate to HTTP status codes.
var (
	// ErrUnsupportedFormat means the file extension is not one the
	// extractor knows how to handle.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrReadFailure wraps extraction I/O problems (missing object,
	// corrupt binary, encoding error). No partial text is ever returned.
	ErrReadFailure = errors.New("file read failed")

	// ErrGenerationFailed means the completion gateway could not produce
	// text: transport error, quota, malformed response, or timeout.
	ErrGenerationFailed = errors.New("generation failed")

	// ErrNotFound covers both missing resources and ownership violations;
	// the API never reveals that another user's resource exists.
	ErrNotFound = errors.New("not found")

	// ErrValidation rejects bad input before any pipeline work begins.
	ErrValidation = errors.New("validation failed")
)
