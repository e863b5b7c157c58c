package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vaultkeeper/vaultkeeper/models"
)

// UserRepository persists principals and their lockout/MFA counters.
//
// The counter operations are deliberately single-statement: concurrent
// logins against one account serialize on the row inside the database, so
// the lockout policy holds across multiple server instances.
type UserRepository interface {
	Create(ctx context.Context, user models.User) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (models.User, error)

	// RecordFailedLogin atomically increments the failed-attempt counter
	// and, when the counter reaches maxAttempts, transitions the account to
	// locked until lockedUntil. Returns the updated user row.
	RecordFailedLogin(ctx context.Context, id uuid.UUID, maxAttempts int, lockedUntil time.Time) (models.User, error)

	// ClearLock lazily lifts an expired lock: status back to active,
	// failed attempts reset to zero.
	ClearLock(ctx context.Context, id uuid.UUID) error

	// ResetFailedAttempts zeroes the counter after a successful
	// verification.
	ResetFailedAttempts(ctx context.Context, id uuid.UUID) error

	// RecordMFAAttempt bumps the per-user MFA attempt counter, resetting it
	// when the previous window has elapsed. Reports whether the attempt is
	// within maxAttempts.
	RecordMFAAttempt(ctx context.Context, id uuid.UUID, maxAttempts int, window time.Duration) (bool, error)

	SetMFAEnabled(ctx context.Context, id uuid.UUID, enabled bool) error

	// UpdateCredentials atomically replaces the credential hash and both
	// wrapped key blobs.
	UpdateCredentials(ctx context.Context, id uuid.UUID, credentialHash, wrappedVaultKey, wrappedPrivateKey string) error

	// Delete removes the principal; vaults, secrets and sessions follow
	// through storage-level cascade rules.
	Delete(ctx context.Context, id uuid.UUID) error
}

// SessionRepository is the ledger of issued refresh tokens.
type SessionRepository interface {
	Create(ctx context.Context, session models.Session) (models.Session, error)
	FindByID(ctx context.Context, id uuid.UUID) (models.Session, error)
	FindActiveByFingerprint(ctx context.Context, fingerprint string) (models.Session, error)

	// Rotate swaps the fingerprint and expiry of the active session row
	// holding oldFingerprint. Exactly one of two concurrent rotations of
	// the same token can win; the loser gets ErrSessionNotFound.
	Rotate(ctx context.Context, oldFingerprint, newFingerprint string, expiresAt time.Time) (models.Session, error)

	// Deactivate marks one session inactive. Sessions are never deleted.
	Deactivate(ctx context.Context, id uuid.UUID) error
	DeactivateAllForUser(ctx context.Context, userID uuid.UUID) (int64, error)

	// DeactivateOthers marks every active session of the user inactive
	// except the one holding keepFingerprint.
	DeactivateOthers(ctx context.Context, userID uuid.UUID, keepFingerprint string) (int64, error)

	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Session, error)
}

// MFARepository persists per-user MFA enrollments.
type MFARepository interface {
	Upsert(ctx context.Context, method models.MFAMethod) (models.MFAMethod, error)
	FindByUserAndType(ctx context.Context, userID uuid.UUID, mfaType models.MFAType) (models.MFAMethod, error)
	MarkVerified(ctx context.Context, id uuid.UUID) error
}

// VaultRepository persists vaults.
type VaultRepository interface {
	Create(ctx context.Context, vault models.Vault) (models.Vault, error)
	FindByID(ctx context.Context, id uuid.UUID) (models.Vault, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Vault, error)
	Update(ctx context.Context, id uuid.UUID, update models.VaultUpdate) (models.Vault, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// FolderRepository persists the folder hierarchy inside vaults.
type FolderRepository interface {
	Create(ctx context.Context, folder models.Folder) (models.Folder, error)
	FindByID(ctx context.Context, id uuid.UUID) (models.Folder, error)
	ListByVault(ctx context.Context, vaultID uuid.UUID) ([]models.Folder, error)
	SetParent(ctx context.Context, id uuid.UUID, parentID *uuid.UUID) error
}

// SecretRepository persists secrets and their immutable version history.
type SecretRepository interface {
	// Create inserts the secret together with its version-1 snapshot in one
	// transaction.
	Create(ctx context.Context, secret models.Secret, createdBy uuid.UUID) (models.Secret, error)

	FindByID(ctx context.Context, id uuid.UUID) (models.Secret, error)
	List(ctx context.Context, filter models.SecretFilter) ([]models.Secret, error)

	// Update applies the enumerated field changes; when the update carries
	// new content it appends a version numbered max(existing)+1 inside the
	// same transaction.
	Update(ctx context.Context, id uuid.UUID, update models.SecretUpdate, updatedBy uuid.UUID) (models.Secret, error)

	// TouchAccess bumps access_count and last_accessed_at. Part of the read
	// path, not a separate caller-visible operation.
	TouchAccess(ctx context.Context, id uuid.UUID) error

	SetArchived(ctx context.Context, id uuid.UUID, archived bool) error
	SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error
	Restore(ctx context.Context, id uuid.UUID) error

	// Delete permanently removes the secret; versions and share grants
	// follow through cascade rules.
	Delete(ctx context.Context, id uuid.UUID) error

	// Move relocates the secret into another vault with the re-wrapped item
	// key supplied by the client, dropping any folder association.
	Move(ctx context.Context, id, vaultID uuid.UUID, itemKeyWrapped string) error

	Versions(ctx context.Context, secretID uuid.UUID) ([]models.SecretVersion, error)

	// PurgeDeletedBefore permanently removes secrets soft-deleted before
	// cutoff and returns how many were purged.
	PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ShareRepository persists share grants.
type ShareRepository interface {
	Create(ctx context.Context, grant models.ShareGrant) (models.ShareGrant, error)
	FindByID(ctx context.Context, id uuid.UUID) (models.ShareGrant, error)

	// FindByToken resolves a link grant and its (possibly deleted) secret.
	FindByToken(ctx context.Context, token string) (models.SharedSecret, error)

	// ConsumeView atomically increments view_count, guarded by the view cap
	// and expiry in the same statement. Two concurrent redemptions at one
	// remaining view cannot both succeed.
	ConsumeView(ctx context.Context, id uuid.UUID, now time.Time) error

	Update(ctx context.Context, id uuid.UUID, update models.ShareGrantUpdate) (models.ShareGrant, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// ListForUser returns non-expired grants addressed to the user, joined
	// with their still-undeleted secrets.
	ListForUser(ctx context.Context, userID uuid.UUID, now time.Time) ([]models.SharedSecret, error)

	// HistoryBySecret returns every grant ever issued for the secret,
	// newest first.
	HistoryBySecret(ctx context.Context, secretID uuid.UUID) ([]models.ShareGrant, error)
}

// AuditRepository is the append-only audit sink backend.
type AuditRepository interface {
	Append(ctx context.Context, record models.AuditRecord) error
	Query(ctx context.Context, filter models.AuditFilter) ([]models.AuditRecord, error)
}
