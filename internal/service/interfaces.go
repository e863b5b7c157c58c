package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/vaultkeeper/vaultkeeper/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/service_mocks.go -package=mock

// AuthService drives the authentication state machine: registration,
// credential verification with lockout, the optional MFA step, token
// issuance and rotation, and session management.
type AuthService interface {
	Register(ctx context.Context, req models.RegisterRequest) (models.User, error)

	// Login verifies credentials and either returns a token pair or, when
	// the account has verified MFA, an MFA-pending token. deviceInfo and
	// ipAddress are recorded on the session.
	Login(ctx context.Context, req models.LoginRequest, deviceInfo, ipAddress string) (models.LoginResult, error)

	// VerifyMFA completes a login halted at the MFA gate. The pending token
	// authorizes nothing but this call.
	VerifyMFA(ctx context.Context, req models.MFAVerifyRequest, deviceInfo, ipAddress string) (models.LoginResult, error)

	// SetupTOTP provisions (or re-provisions) an authenticator enrollment.
	// The enrollment stays inert until ConfirmTOTP succeeds once.
	SetupTOTP(ctx context.Context, userID uuid.UUID) (models.MFASetupResult, error)

	// ConfirmTOTP verifies the first code from a fresh enrollment, marking
	// it verified and switching MFA on for the account.
	ConfirmTOTP(ctx context.Context, userID uuid.UUID, code string) error

	// Refresh exchanges a live refresh token for a fresh pair, rotating the
	// session fingerprint in place. A token that was already rotated away
	// fails with ErrAuthentication.
	Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error)

	// Logout invalidates the session holding the refresh token. Idempotent:
	// an already-dead token is not an error.
	Logout(ctx context.Context, refreshToken string) error

	RevokeSession(ctx context.Context, userID, sessionID uuid.UUID) error
	ListSessions(ctx context.Context, userID uuid.UUID) ([]models.Session, error)

	// ChangePassword swaps the credential hash and wrapped key blobs, then
	// revokes every other session of the user. currentRefreshToken
	// identifies the session that survives.
	ChangePassword(ctx context.Context, userID uuid.UUID, req models.ChangePasswordRequest, currentRefreshToken string) error

	DeleteAccount(ctx context.Context, userID uuid.UUID) error

	// Authenticate validates a raw access token and returns the user it
	// belongs to. Used by the HTTP auth middleware.
	Authenticate(ctx context.Context, accessToken string) (uuid.UUID, error)
}

// VaultService manages vaults and their folder trees.
type VaultService interface {
	CreateVault(ctx context.Context, ownerID uuid.UUID, req models.CreateVaultRequest) (models.Vault, error)
	ListVaults(ctx context.Context, ownerID uuid.UUID) ([]models.Vault, error)
	GetVault(ctx context.Context, userID, vaultID uuid.UUID) (models.Vault, error)
	UpdateVault(ctx context.Context, userID, vaultID uuid.UUID, update models.VaultUpdate) (models.Vault, error)
	DeleteVault(ctx context.Context, userID, vaultID uuid.UUID) error

	CreateFolder(ctx context.Context, userID uuid.UUID, req models.CreateFolderRequest) (models.Folder, error)
	ListFolders(ctx context.Context, userID, vaultID uuid.UUID) ([]models.Folder, error)

	// MoveFolder re-parents a folder after checking that the new parent is
	// in the same vault and is not a descendant of the folder.
	MoveFolder(ctx context.Context, userID, folderID uuid.UUID, parentID *uuid.UUID) error
}

// SecretService manages the secret lifecycle: creation with versioning,
// reads with access accounting, state transitions between active, archived
// and trash, and vault-to-vault moves.
type SecretService interface {
	Create(ctx context.Context, userID uuid.UUID, req models.CreateSecretRequest) (models.Secret, error)
	Get(ctx context.Context, userID, secretID uuid.UUID) (models.Secret, error)
	List(ctx context.Context, userID uuid.UUID, filter models.SecretFilter) ([]models.Secret, error)
	Update(ctx context.Context, userID, secretID uuid.UUID, update models.SecretUpdate) (models.Secret, error)

	Archive(ctx context.Context, userID, secretID uuid.UUID) error
	Unarchive(ctx context.Context, userID, secretID uuid.UUID) error

	// Delete moves the secret to the trash; Restore brings it back; Purge
	// removes a trashed secret permanently ahead of the retention sweep.
	Delete(ctx context.Context, userID, secretID uuid.UUID) error
	Restore(ctx context.Context, userID, secretID uuid.UUID) error
	Purge(ctx context.Context, userID, secretID uuid.UUID) error

	Move(ctx context.Context, userID, secretID uuid.UUID, req models.MoveSecretRequest) (models.Secret, error)
	Duplicate(ctx context.Context, userID, secretID uuid.UUID, req models.DuplicateSecretRequest) (models.Secret, error)
	Versions(ctx context.Context, userID, secretID uuid.UUID) ([]models.SecretVersion, error)
}

// ShareService manages grants addressed to users, teams, and anonymous link
// holders.
type ShareService interface {
	Share(ctx context.Context, userID, secretID uuid.UUID, req models.ShareSecretRequest) (models.ShareGrant, error)
	CreateLink(ctx context.Context, userID, secretID uuid.UUID, req models.CreateShareLinkRequest) (models.ShareLinkResult, error)

	// RedeemLink spends one view of a link grant and returns the secret.
	// No authentication: the token is the capability.
	RedeemLink(ctx context.Context, token string) (models.SharedSecret, error)

	SharedWithMe(ctx context.Context, userID uuid.UUID) ([]models.SharedSecret, error)
	History(ctx context.Context, userID, secretID uuid.UUID) ([]models.ShareGrant, error)
	UpdateGrant(ctx context.Context, userID, grantID uuid.UUID, update models.ShareGrantUpdate) (models.ShareGrant, error)
	Revoke(ctx context.Context, userID, grantID uuid.UUID) error
}

// Authorizer decides whether a user may touch a vault and, transitively,
// the secrets inside it.
type Authorizer interface {
	CanAccessVault(ctx context.Context, userID, vaultID uuid.UUID) error
}

// AuditSink records append-only facts about state-changing operations.
// Record is best-effort: a failing sink never fails the operation that
// produced the record.
type AuditSink interface {
	Record(ctx context.Context, record models.AuditRecord)
	Query(ctx context.Context, filter models.AuditFilter) ([]models.AuditRecord, error)
}
