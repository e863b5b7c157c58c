package models

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType discriminates the three kinds of signed tokens the server issues.
type TokenType string

const (
	// TokenAccess is a short-lived token presented on every API call.
	TokenAccess TokenType = "access"
	// TokenRefresh is a long-lived token exchanged for a fresh pair; its
	// fingerprint is tracked in the session ledger.
	TokenRefresh TokenType = "refresh"
	// TokenMFAPending is issued after a correct password when MFA is
	// enabled; it authorizes nothing but the MFA verification call.
	TokenMFAPending TokenType = "mfa_pending"
)

// TokenClaims is the claims set carried by every token the server signs.
// Subject holds the user ID; Type gates which endpoints accept the token.
type TokenClaims struct {
	jwt.RegisteredClaims

	Type TokenType `json:"typ"`
}

// UserID parses the subject claim as a user identifier.
func (c *TokenClaims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// TokenPair is the access/refresh pair returned by login, MFA verification
// and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}
