// Package common defines shared constants and sentinel errors used across
// client and server layers of rollcall. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// Validation errors.
	ErrInvalidArgument = errors.New("invalid argument")

	// Capture-session errors, recovered locally and never sent to the ledger.
	ErrInvalidSelection   = errors.New("invalid selection")
	ErrIdentityUnresolved = errors.New("identity could not be resolved")
	ErrBusy               = errors.New("a submission is already in flight")
	ErrConflictPending    = errors.New("an unresolved conflict is awaiting a decision")
	ErrNoConflict         = errors.New("no conflict to resolve")

	// Conflict resolver errors.
	ErrAlreadyResolved = errors.New("conflict already resolved")

	// Offline queue errors.
	ErrStaleItem = errors.New("queued item changed since it was listed")
)
