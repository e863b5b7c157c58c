package models

import (
	"time"

	"github.com/google/uuid"
)

// RegisterRequest carries everything the client produced at signup: the
// derived auth key (never the master password) plus the wrapped key blobs
// the server stores verbatim.
type RegisterRequest struct {
	Email             string `json:"email"`
	Name              string `json:"name"`
	CredentialKey     string `json:"credential_key"`
	WrappedVaultKey   string `json:"wrapped_vault_key"`
	WrappedPrivateKey string `json:"wrapped_private_key"`
	PublicKey         string `json:"public_key"`
	KDFIterations     int    `json:"kdf_iterations"`
	KDFMemory         int    `json:"kdf_memory"`
}

// LoginRequest authenticates by email and the client-derived auth key.
type LoginRequest struct {
	Email         string `json:"email"`
	CredentialKey string `json:"credential_key"`
}

// MFAVerifyRequest completes a login gated by MFA.
type MFAVerifyRequest struct {
	MFAPendingToken string `json:"mfa_pending_token"`
	Code            string `json:"code"`
}

// RefreshRequest exchanges a refresh token for a fresh pair.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ChangePasswordRequest rotates the credential and the wrapped key blobs in
// one atomic step. The client re-wraps its keys under the new derivation
// before calling; the server only swaps blobs.
type ChangePasswordRequest struct {
	CurrentCredentialKey string `json:"current_credential_key"`
	NewCredentialKey     string `json:"new_credential_key"`
	NewWrappedVaultKey   string `json:"new_wrapped_vault_key"`
	NewWrappedPrivateKey string `json:"new_wrapped_private_key"`
}

// CreateVaultRequest creates a new vault for the caller.
type CreateVaultRequest struct {
	NameCiphertext        string     `json:"name_ciphertext"`
	Type                  VaultType  `json:"type"`
	OrgID                 *uuid.UUID `json:"org_id,omitempty"`
	DescriptionCiphertext *string    `json:"description_ciphertext,omitempty"`
	Icon                  string     `json:"icon"`
}

// CreateSecretRequest creates a secret plus its initial version.
type CreateSecretRequest struct {
	VaultID            uuid.UUID  `json:"vault_id"`
	Type               SecretType `json:"type"`
	NameCiphertext     string     `json:"name_ciphertext"`
	DataCiphertext     string     `json:"data_ciphertext"`
	ItemKeyWrapped     string     `json:"item_key_wrapped"`
	MetadataCiphertext *string    `json:"metadata_ciphertext,omitempty"`
	FolderID           *uuid.UUID `json:"folder_id,omitempty"`
	Favorite           bool       `json:"favorite"`
}

// MoveSecretRequest relocates a secret to another vault. The caller must
// supply the item key re-wrapped under the destination vault's key; the
// server cannot perform that re-encryption.
type MoveSecretRequest struct {
	TargetVaultID  uuid.UUID `json:"target_vault_id"`
	ItemKeyWrapped string    `json:"item_key_wrapped"`
}

// DuplicateSecretRequest copies a secret, optionally into another vault.
type DuplicateSecretRequest struct {
	NameCiphertext string     `json:"name_ciphertext"`
	ItemKeyWrapped string     `json:"item_key_wrapped"`
	TargetVaultID  *uuid.UUID `json:"target_vault_id,omitempty"`
}

// CreateFolderRequest adds a folder to a vault.
type CreateFolderRequest struct {
	VaultID        uuid.UUID  `json:"vault_id"`
	NameCiphertext string     `json:"name_ciphertext"`
	ParentID       *uuid.UUID `json:"parent_id,omitempty"`
}

// ShareSecretRequest issues a grant to a specific user or team.
type ShareSecretRequest struct {
	Recipient      Recipient       `json:"recipient"`
	ItemKeyWrapped string          `json:"item_key_wrapped"`
	Permission     SharePermission `json:"permission"`
	ExpiresAt      *time.Time      `json:"expires_at,omitempty"`
}

// CreateShareLinkRequest issues an anonymous link grant.
type CreateShareLinkRequest struct {
	ItemKeyWrapped string `json:"item_key_wrapped"`
	ExpiresInHours int    `json:"expires_in_hours"`
	MaxViews       *int   `json:"max_views,omitempty"`
}
