// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrInvalidTransition indicates a review state change that the
// conflict lifecycle does not permit, while ErrNotFound signals that a
// requested row does not exist.
package repository

import "errors"

// ErrJobNotFound is returned when an import job id or reference does not
// match any row. Handlers should translate this into an HTTP 404 response.
var ErrJobNotFound = errors.New("import job not found")

// ErrConflictNotFound is returned when a conflict movie id does not match
// any row. Handlers should translate this into an HTTP 404 response.
var ErrConflictNotFound = errors.New("conflict not found")

// ErrMappingNotFound is returned when no title mapping exists for the
// requested key or id.
var ErrMappingNotFound = errors.New("title mapping not found")

// ErrMovieNotFound is returned when a referenced catalog movie does not
// exist.
var ErrMovieNotFound = errors.New("movie not found")

// ErrCinemaNotFound is returned when the target cinema of an import does
// not exist.
var ErrCinemaNotFound = errors.New("cinema not found")

// ErrInvalidTransition is returned when a review state change violates the
// conflict lifecycle (e.g. processed back to verified, or processing a
// conflict that was never verified). Handlers should translate this into
// an HTTP 409 response.
var ErrInvalidTransition = errors.New("invalid state transition")
