package domain

import "errors"

var (
	// ErrValidation marks a rejected input; the offending action leaves state
	// untouched and records a message on the session error field.
	ErrValidation = errors.New("validation failed")
	// ErrModeCompatibility marks a mode transition that could not be made
	// consistent with the current data and was rolled back.
	ErrModeCompatibility = errors.New("mode incompatible with session data")
	// ErrSessionCorruption marks a persisted snapshot that stayed invalid even
	// after repair; restoration is aborted.
	ErrSessionCorruption = errors.New("persisted session corrupted")
	// ErrStorageUnavailable marks an unreachable key-value store; persistence
	// actions degrade to empty results instead of failing the session.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
