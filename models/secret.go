package models

import (
	"time"

	"github.com/google/uuid"
)

// Secret is one encrypted item inside a vault.
//
// Name, data and metadata are ciphertext produced by the client; the item's
// symmetric key travels wrapped under the vault key in ItemKeyWrapped. A
// secret is in exactly one of three states at any moment: active, archived,
// or soft-deleted. Archived and deleted flags are mutually exclusive and are
// both independent of versioning.
type Secret struct {
	ID                 uuid.UUID  `json:"id"`
	VaultID            uuid.UUID  `json:"vault_id"`
	FolderID           *uuid.UUID `json:"folder_id,omitempty"`
	Type               SecretType `json:"type"`
	NameCiphertext     string     `json:"name_ciphertext"`
	DataCiphertext     string     `json:"data_ciphertext"`
	ItemKeyWrapped     string     `json:"item_key_wrapped"`
	MetadataCiphertext *string    `json:"metadata_ciphertext,omitempty"`
	Favorite           bool       `json:"favorite"`
	IsArchived         bool       `json:"is_archived"`
	IsDeleted          bool       `json:"is_deleted"`
	DeletedAt          *time.Time `json:"deleted_at,omitempty"`
	AccessCount        int64      `json:"access_count"`
	LastAccessedAt     *time.Time `json:"last_accessed_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// TableName returns the name of the database table backing the Secret model.
func (s Secret) TableName() string {
	return "secrets"
}

// SecretVersion is an immutable snapshot of a secret's content at one point
// of its history. Version numbers start at 1 and increase by one on every
// content-changing update; no normal flow mutates or deletes a version.
type SecretVersion struct {
	ID             uuid.UUID `json:"id"`
	SecretID       uuid.UUID `json:"secret_id"`
	DataCiphertext string    `json:"data_ciphertext"`
	ItemKeyWrapped string    `json:"item_key_wrapped"`
	VersionNumber  int       `json:"version_number"`
	CreatedBy      uuid.UUID `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
}

// TableName returns the name of the database table backing the SecretVersion model.
func (v SecretVersion) TableName() string {
	return "secret_versions"
}

// SecretUpdate enumerates the fields a caller may change on a secret.
// Nil pointers mean "leave unchanged". Invariant-protected fields
// (version numbers, access statistics, deletion flags) are deliberately
// absent: they can only move through their dedicated operations.
type SecretUpdate struct {
	NameCiphertext     *string     `json:"name_ciphertext,omitempty"`
	DataCiphertext     *string     `json:"data_ciphertext,omitempty"`
	ItemKeyWrapped     *string     `json:"item_key_wrapped,omitempty"`
	MetadataCiphertext *string     `json:"metadata_ciphertext,omitempty"`
	FolderID           *uuid.UUID  `json:"folder_id,omitempty"`
	Favorite           *bool       `json:"favorite,omitempty"`
	Type               *SecretType `json:"type,omitempty"`
}

// ContentChanged reports whether applying the update produces a new version.
// Metadata-only edits (favorite, folder, name) do not version.
func (u SecretUpdate) ContentChanged() bool {
	return u.DataCiphertext != nil || u.ItemKeyWrapped != nil
}

// SecretState selects which lifecycle bucket a listing targets.
type SecretState string

const (
	SecretStateActive   SecretState = "active"
	SecretStateArchived SecretState = "archived"
	SecretStateDeleted  SecretState = "deleted"
)

// SecretFilter describes one listing request. Sorting is restricted to a
// whitelist of columns at the storage layer; unknown columns fall back to
// updated_at.
type SecretFilter struct {
	VaultID  *uuid.UUID
	OwnerID  *uuid.UUID
	FolderID *uuid.UUID
	Category *SecretType
	State    SecretState
	SortBy   string
	SortDesc bool
}
