package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/vaultkeeper/vaultkeeper/models"
)

// GenerateToken creates a signed HMAC-SHA256 JWT of the given type.
//
// Claims:
//   - iss: issuer
//   - sub: the user ID in string form
//   - iat / exp: now and now+ttl
//   - jti: a random UUID, so two tokens minted in the same second for the
//     same user still differ (and so do their fingerprints)
//   - typ: one of access, refresh, mfa_pending
//
// Returns an error if any parameter is empty or signing fails.
func GenerateToken(issuer string, userID uuid.UUID, tokenType models.TokenType, ttl time.Duration, signKey string) (string, error) {
	if issuer == "" || ttl == 0 || signKey == "" || userID == uuid.Nil {
		return "", errors.New("invalid params for generating token")
	}

	now := time.Now()
	claims := &models.TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID.String(),
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Type: tokenType,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(signKey))
	if err != nil {
		return "", fmt.Errorf("error signing token: %w", err)
	}

	return signed, nil
}

// ParseToken verifies the signature, issuer and expiry of a raw token string
// and returns its claims. The signing method is pinned to HMAC so a token
// with an attacker-chosen algorithm never verifies.
func ParseToken(tokenString, signKey, issuer string) (*models.TokenClaims, error) {
	claims := &models.TokenClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(signKey), nil
	}, jwt.WithIssuer(issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("error validating token: %w", err)
	}

	if claims.Subject == "" {
		return nil, errors.New("empty subject claim")
	}

	return claims, nil
}

// Fingerprint returns the hex-encoded SHA-256 digest of a token string.
// Only fingerprints are persisted in the session ledger; the raw refresh
// token never touches storage.
func Fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
