package models

import (
	"time"

	"github.com/google/uuid"
)

// Session is the persisted record of one issued refresh token.
//
// The raw refresh token is never stored; TokenFingerprint holds its SHA-256
// digest and is unique across all sessions. A session is invalidated (never
// deleted) on logout, revocation, or expiry so that device history remains
// available for auditing. Refreshing rotates the fingerprint in place: the
// same row survives, the old token dies.
type Session struct {
	ID               uuid.UUID `json:"id"`
	UserID           uuid.UUID `json:"user_id"`
	TokenFingerprint string    `json:"-"`
	DeviceInfo       string    `json:"device_info,omitempty"`
	IPAddress        string    `json:"ip_address,omitempty"`
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
	ExpiresAt        time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// TableName returns the name of the database table backing the Session model.
func (s Session) TableName() string {
	return "sessions"
}
