package storecore

import "github.com/ferreye/storecore/coreerrors"

// The error sentinels live in coreerrors so the sub-packages can share them
// without importing this package. They are re-exported here so callers match
// with errors.Is against storecore names alone.
var (
	ErrValidation         = coreerrors.ErrValidation
	ErrUnauthorized       = coreerrors.ErrUnauthorized
	ErrForbidden          = coreerrors.ErrForbidden
	ErrSessionExpired     = coreerrors.ErrSessionExpired
	ErrSocialAuth         = coreerrors.ErrSocialAuth
	ErrInvalidCredentials = coreerrors.ErrInvalidCredentials
	ErrTimeout            = coreerrors.ErrTimeout
	ErrConnectionFailed   = coreerrors.ErrConnectionFailed
	ErrServerError        = coreerrors.ErrServerError
	ErrPersistCorrupt     = coreerrors.ErrPersistCorrupt
	ErrPersistWrite       = coreerrors.ErrPersistWrite
	ErrUnknownProvider    = coreerrors.ErrUnknownProvider
	ErrCoreNotReady       = coreerrors.ErrCoreNotReady
)

// ValidationError carries the failing field and rule. Matches
// ErrValidation under errors.Is.
type ValidationError = coreerrors.ValidationError
