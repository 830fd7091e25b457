// Package app holds the error taxonomy shared by the booking and messaging
// services. Handlers translate these with errors.Is into HTTP statuses or
// websocket error events; services wrap them with context via fmt.Errorf
// and %w.
package app

import "errors"

var (
	// ErrValidation marks malformed or missing input. No state changed.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a referenced entity that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrPermission marks a failed role or ownership check.
	ErrPermission = errors.New("permission denied")

	// ErrConflict marks an overlapping booking or an already-terminal session.
	ErrConflict = errors.New("conflict")

	// ErrInsufficientFunds marks a wallet balance too low for the operation.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInternal marks a storage or notification failure. The underlying
	// cause is logged, never leaked to the caller.
	ErrInternal = errors.New("internal error")
)
