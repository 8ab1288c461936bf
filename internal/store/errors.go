package store

import "errors"

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned on unique-key conflicts, e.g. a second
	// registration of the same user for the same event.
	ErrAlreadyExists = errors.New("already exists")
	// ErrAlreadyProcessed is returned when a payment request has already
	// left the pending state.
	ErrAlreadyProcessed = errors.New("already processed")
	// ErrUnknownField is returned when an update names a column outside
	// the allow-list.
	ErrUnknownField = errors.New("unknown field")
)
