package models

import (
	"time"

	"github.com/google/uuid"
)

// MFAType identifies a multi-factor authentication method.
type MFAType string

const (
	MFATypeTOTP MFAType = "totp"
)

// MFAMethod holds per-user enrollment for one MFA method.
//
// Enrollment becomes authoritative only after the first successful
// verification: until Verified is set the user's MFAEnabled flag stays
// false and login does not require a second factor.
type MFAMethod struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Type      MFAType   `json:"type"`
	Secret    string    `json:"-"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the name of the database table backing the MFAMethod model.
func (m MFAMethod) TableName() string {
	return "mfa_methods"
}
