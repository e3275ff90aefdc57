package storage

import "errors"

var (
	// ErrDuplicateKey means the record is already stored: a trade event with the
	// same signature key, or detections for a run that was already persisted.
	// Both stores are append-only.
	ErrDuplicateKey = errors.New("duplicate key: record already stored")

	// ErrInvalidInput means a record is missing a key field.
	ErrInvalidInput = errors.New("invalid input")
)
