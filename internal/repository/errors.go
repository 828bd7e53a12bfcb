package repository

import "github.com/pkg/errors"

var (
	ErrAlreadyExists = errors.New("already exists")
	ErrNotFound      = errors.New("not found")

	// ErrVersionConflict is returned when a conditional write loses the
	// race: the expected approval count or a non-terminal status no longer
	// holds. The caller re-reads and retries.
	ErrVersionConflict = errors.New("version conflict")
)
