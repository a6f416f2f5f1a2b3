package models

import (
	"errors"
	"fmt"
)

// Error kinds returned across package boundaries. Callers tag failures with
// fmt.Errorf("%w: ...") and classify them with errors.Is.
var (
	// ErrParse marks malformed input: transcript JSON or query syntax. Not retryable.
	ErrParse = errors.New("parse error")
	// ErrQueryParse is a malformed free-text query.
	ErrQueryParse = fmt.Errorf("%w: query", ErrParse)
	// ErrIO marks a blob or record store failure. Retryable by the caller.
	ErrIO = errors.New("io error")
	// ErrService marks a translation or index backend failure.
	ErrService = errors.New("service error")
	// ErrNotFound marks an unknown video record.
	ErrNotFound = errors.New("not found")
	// ErrInvalid marks a request that is well formed but unusable (empty query, missing language).
	ErrInvalid = errors.New("invalid request")
)
