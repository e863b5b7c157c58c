package service

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidDataProvided = errors.New("invalid data provided")

	// ErrAuthentication covers every credential failure: unknown email,
	// wrong auth key, dead refresh token. Callers surface it uniformly so
	// responses never reveal which part failed.
	ErrAuthentication = errors.New("invalid credentials")

	// ErrAccountLocked is the target for [AccountLockedError] matching.
	ErrAccountLocked = errors.New("account is locked")

	ErrMFACodeInvalid     = errors.New("invalid mfa code")
	ErrTooManyMFAAttempts = errors.New("too many mfa attempts")

	ErrTokenIsExpiredOrInvalid = errors.New("token is expired or invalid")

	// ErrAccessDenied is returned when the caller does not own the resource
	// it addressed.
	ErrAccessDenied = errors.New("access denied")

	// ErrFolderCycle is returned when a folder re-parenting would make the
	// folder its own ancestor.
	ErrFolderCycle = errors.New("folder parent would create a cycle")

	// ErrSecretNotInTrash is returned when a permanent delete targets a
	// secret that has not been soft-deleted first.
	ErrSecretNotInTrash = errors.New("secret is not in trash")

	// ErrShareGone is returned when a link redemption presents an unknown
	// token or targets a secret that has been trashed or purged.
	ErrShareGone = errors.New("share link is no longer available")

	// ErrShareExpired is returned when the link exists but its expiry has
	// passed. Distinct from ErrShareGone: the token resolved, the grant is
	// just no longer usable.
	ErrShareExpired = errors.New("share link has expired")

	// ErrShareExhausted is returned when the link exists but every allowed
	// view has been spent, including losing the race for the last one.
	ErrShareExhausted = errors.New("share link view limit reached")
)

// AccountLockedError reports a login attempt against a locked account,
// carrying how long the caller has to wait. Matches ErrAccountLocked under
// [errors.Is].
type AccountLockedError struct {
	RetryAfter time.Duration
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account is locked, retry in %s", e.RetryAfter.Round(time.Second))
}

func (e *AccountLockedError) Is(target error) bool {
	return target == ErrAccountLocked
}
