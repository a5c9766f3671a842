package models

import "errors"

// Error kinds shared by the store, the identity client and the services.
// Boundaries translate their own failures into these and callers use
// errors.Is; nothing matches on message text.
var (
	ErrIdentityCreationFailed = errors.New("identity creation failed")
	ErrProfileInsertFailed    = errors.New("profile insert failed")
	ErrRecordNotFound         = errors.New("record not found")
	ErrDuplicateKey           = errors.New("duplicate key")
	ErrStoreUnavailable       = errors.New("store unavailable")

	ErrInvalidInput       = errors.New("invalid input")
	ErrConflict           = errors.New("conflicting state")
	ErrForbidden          = errors.New("forbidden")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
)
