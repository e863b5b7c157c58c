package models

import (
	"time"

	"github.com/google/uuid"
)

// UserStatus is the lifecycle state of a user account.
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
	UserStatusLocked   UserStatus = "locked"
	UserStatusPending  UserStatus = "pending"
)

// User represents a principal of the vault server.
//
// The server never sees plaintext key material: CredentialHash is a bcrypt
// hash of a client-derived authentication key, and the Wrapped* fields hold
// key blobs encrypted on the client before upload. Sensitive fields are
// excluded from JSON serialization.
type User struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name"`

	// CredentialHash is the bcrypt hash of the client-derived auth key.
	// Never the master password itself.
	CredentialHash string `json:"-"`

	// WrappedVaultKey is the user's vault key encrypted under a key derived
	// client-side from the master password.
	WrappedVaultKey string `json:"-"`

	// WrappedPrivateKey and PublicKey form the user's sharing keypair.
	// The private half is encrypted client-side; the public half is served
	// to other users who want to share secrets with this one.
	WrappedPrivateKey string `json:"-"`
	PublicKey         string `json:"public_key,omitempty"`

	// KDF parameters the client used to derive its keys. Stored so the
	// client can re-derive after login on a new device.
	KDFIterations int `json:"kdf_iterations"`
	KDFMemory     int `json:"kdf_memory"`

	MFAEnabled bool       `json:"mfa_enabled"`
	Status     UserStatus `json:"status"`

	// FailedAttempts counts consecutive failed logins. Reset to zero on any
	// successful credential verification or lock expiry.
	FailedAttempts int        `json:"-"`
	LockedUntil    *time.Time `json:"-"`

	// MFAAttempts / MFAAttemptsResetAt implement an independent rate limit
	// for MFA code verification, kept in shared storage so the limit holds
	// across server instances.
	MFAAttempts        int        `json:"-"`
	MFAAttemptsResetAt *time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Locked reports whether the account lockout is still in force at now.
func (u *User) Locked(now time.Time) bool {
	return u.Status == UserStatusLocked && u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

// TableName returns the name of the database table backing the User model.
func (u User) TableName() string {
	return "users"
}
