package repository

import "errors"

// Common repository errors
var (
	// ErrNotFound is returned when a record is not found
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateEmail is returned when trying to create an account with an existing email
	ErrDuplicateEmail = errors.New("account with this email already exists")

	// ErrDuplicateExternalID is returned when an external identity is already linked to another account
	ErrDuplicateExternalID = errors.New("external identity already linked")

	// ErrDuplicateSessionRef is returned when a donation with the same gateway session already exists
	ErrDuplicateSessionRef = errors.New("donation with this session ref already exists")

	// ErrTerminalState is returned when a status transition targets a donation that is already terminal
	ErrTerminalState = errors.New("donation is in a terminal state")
)
