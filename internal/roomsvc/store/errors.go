package store

import "errors"

var (
	// ErrInsufficientBalance is returned by Debit when the handle's balance
	// would go negative.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
)
