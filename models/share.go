package models

import (
	"time"

	"github.com/google/uuid"
)

// SharePermission is the access level a grant conveys.
type SharePermission string

const (
	SharePermissionRead  SharePermission = "read"
	SharePermissionWrite SharePermission = "write"
)

// RecipientKind tags the single audience of a share grant.
type RecipientKind string

const (
	RecipientUser RecipientKind = "user"
	RecipientTeam RecipientKind = "team"
	RecipientLink RecipientKind = "link"
)

// Recipient is the tagged variant addressing a share grant: exactly one of
// a specific user, a team, or an anonymous link. The ID field carries the
// user or team identifier and is zero for link grants, whose audience is
// whoever holds the link token.
type Recipient struct {
	Kind RecipientKind `json:"kind"`
	ID   uuid.UUID     `json:"id,omitempty"`
}

// UserRecipient addresses a grant to one specific user.
func UserRecipient(id uuid.UUID) Recipient {
	return Recipient{Kind: RecipientUser, ID: id}
}

// TeamRecipient addresses a grant to every member of a team.
func TeamRecipient(id uuid.UUID) Recipient {
	return Recipient{Kind: RecipientTeam, ID: id}
}

// LinkRecipient addresses a grant to anonymous holders of the link token.
func LinkRecipient() Recipient {
	return Recipient{Kind: RecipientLink}
}

// Valid reports whether the recipient is well-formed: user and team grants
// must carry an identifier, link grants must not.
func (r Recipient) Valid() bool {
	switch r.Kind {
	case RecipientUser, RecipientTeam:
		return r.ID != uuid.Nil
	case RecipientLink:
		return r.ID == uuid.Nil
	default:
		return false
	}
}

// ShareGrant authorizes one recipient to unwrap one secret's item key.
//
// ItemKeyWrapped holds the item key re-encrypted by the sharer under the
// recipient's key material (or under a key embedded in the link fragment for
// link grants); the server relays it without ever being able to unwrap it.
// Link grants additionally carry the capability token and an optional view
// cap enforced atomically at redemption time.
type ShareGrant struct {
	ID             uuid.UUID       `json:"id"`
	SecretID       uuid.UUID       `json:"secret_id"`
	SharedBy       uuid.UUID       `json:"shared_by"`
	Recipient      Recipient       `json:"recipient"`
	ItemKeyWrapped string          `json:"item_key_wrapped"`
	Permission     SharePermission `json:"permission"`
	ShareToken     string          `json:"-"`
	MaxViews       *int            `json:"max_views,omitempty"`
	ViewCount      int             `json:"view_count"`
	ExpiresAt      *time.Time      `json:"expires_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Expired reports whether the grant is past its expiry at now. Grants with
// no expiry never expire.
func (g *ShareGrant) Expired(now time.Time) bool {
	return g.ExpiresAt != nil && now.After(*g.ExpiresAt)
}

// TableName returns the name of the database table backing the ShareGrant model.
func (g ShareGrant) TableName() string {
	return "share_grants"
}

// ShareGrantUpdate enumerates the fields the original sharer may change.
type ShareGrantUpdate struct {
	Permission *SharePermission `json:"permission,omitempty"`
	ExpiresAt  *time.Time       `json:"expires_at,omitempty"`
}

// SharedSecret pairs a grant with the still-live secret it targets, as
// returned by recipient-facing listings and link redemption.
type SharedSecret struct {
	Grant  ShareGrant `json:"grant"`
	Secret Secret     `json:"secret"`
}
