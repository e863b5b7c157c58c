package models

import (
	"time"

	"github.com/google/uuid"
)

// VaultType distinguishes personal vaults from organization-scoped ones.
type VaultType string

const (
	VaultTypePersonal VaultType = "personal"
	VaultTypeTeam     VaultType = "team"
	VaultTypeOrg      VaultType = "organization"
)

// Vault is a container of secrets and folders owned by exactly one user.
// Name and description arrive encrypted; the server never reads them.
type Vault struct {
	ID                    uuid.UUID  `json:"id"`
	OwnerID               uuid.UUID  `json:"owner_id"`
	OrgID                 *uuid.UUID `json:"org_id,omitempty"`
	Type                  VaultType  `json:"type"`
	NameCiphertext        string     `json:"name_ciphertext"`
	DescriptionCiphertext *string    `json:"description_ciphertext,omitempty"`
	Icon                  string     `json:"icon"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// TableName returns the name of the database table backing the Vault model.
func (v Vault) TableName() string {
	return "vaults"
}

// VaultUpdate enumerates the fields a vault owner may change. Nil pointers
// mean "leave unchanged".
type VaultUpdate struct {
	NameCiphertext        *string `json:"name_ciphertext,omitempty"`
	DescriptionCiphertext *string `json:"description_ciphertext,omitempty"`
	Icon                  *string `json:"icon,omitempty"`
}

// Folder groups secrets inside a vault. Folders may nest through ParentID;
// parent assignments that would create a cycle are rejected at write time.
type Folder struct {
	ID             uuid.UUID  `json:"id"`
	VaultID        uuid.UUID  `json:"vault_id"`
	NameCiphertext string     `json:"name_ciphertext"`
	ParentID       *uuid.UUID `json:"parent_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// TableName returns the name of the database table backing the Folder model.
func (f Folder) TableName() string {
	return "folders"
}
