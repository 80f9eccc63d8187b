package store

import "errors"

var (
	// ErrNotFound is returned when a record doesn't exist.
	ErrNotFound = errors.New("ticketer: record not found")

	// ErrAlreadyExists is returned when attempting to create a record with an existing id.
	ErrAlreadyExists = errors.New("ticketer: record already exists")

	// ErrConcurrentModification is returned when optimistic lock fails (version mismatch
	// or the record was removed after it was read).
	ErrConcurrentModification = errors.New("ticketer: record was modified concurrently")

	// ErrRecordTooLarge is returned when a record's encoded body exceeds Config.MaxRecordSize.
	ErrRecordTooLarge = errors.New("ticketer: record exceeds maximum encoded size")
)
