package store

import "errors"

// Sentinel errors returned by repository methods to signal well-known
// failure conditions. Callers match them with [errors.Is].
var (
	// ErrEmailAlreadyExists is returned when registration collides with an
	// existing account on the unique email column.
	ErrEmailAlreadyExists = errors.New("email already registered")

	// ErrUserNotFound is returned when a lookup by email or ID matches no
	// user row.
	ErrUserNotFound = errors.New("user not found")

	// ErrSessionNotFound is returned when no active session matches the
	// given fingerprint — including the case where a concurrent refresh
	// already rotated the fingerprint away.
	ErrSessionNotFound = errors.New("session not found")

	// ErrMFAMethodNotFound is returned when a user has no enrollment for
	// the requested MFA method.
	ErrMFAMethodNotFound = errors.New("mfa method not found")

	// ErrVaultNotFound is returned when a vault lookup matches no row.
	ErrVaultNotFound = errors.New("vault not found")

	// ErrFolderNotFound is returned when a folder lookup matches no row.
	ErrFolderNotFound = errors.New("folder not found")

	// ErrSecretNotFound is returned when a secret lookup matches no row,
	// including secrets already purged permanently.
	ErrSecretNotFound = errors.New("secret not found")

	// ErrShareNotFound is returned when a share grant lookup by ID or link
	// token matches no row.
	ErrShareNotFound = errors.New("share grant not found")

	// ErrShareConsumed is returned by ConsumeView when the grant's view cap
	// is already reached or its expiry has passed; under concurrent
	// redemption exactly one caller past the cap observes this error.
	ErrShareConsumed = errors.New("share link expired or view limit reached")
)

// Low-level database operation errors, wrapped around driver failures.
var (
	// ErrBuildingSQLQuery is returned when constructing a parameterised SQL
	// query fails.
	ErrBuildingSQLQuery = errors.New("error building sql query")

	// ErrExecutingQuery is returned when executing a query fails.
	ErrExecutingQuery = errors.New("error executing sql query")

	// ErrBeginningTransaction is returned when the driver cannot start a
	// transaction.
	ErrBeginningTransaction = errors.New("failed to begin transaction")

	// ErrCommittingTransaction is returned when committing fails. The
	// transaction is considered rolled back at that point.
	ErrCommittingTransaction = errors.New("failed to commit transaction")

	// ErrScanningRow is returned when scanning column values from a result
	// row fails.
	ErrScanningRow = errors.New("failed to scan row")

	// ErrScanningRows is returned when an error is detected during
	// multi-row iteration.
	ErrScanningRows = errors.New("failed to scan rows")
)
