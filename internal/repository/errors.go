package repository

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrConflict indicates a uniqueness constraint rejected the write.
	ErrConflict = errors.New("repository: conflict")
	// ErrLimitExceeded indicates a bounded counter is already at its limit.
	ErrLimitExceeded = errors.New("repository: limit exceeded")
)
