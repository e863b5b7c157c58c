package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashCredential hashes a client-derived auth key with bcrypt at the given
// cost. The input is already a KDF output on the client side; bcrypt here
// protects the stored verifier, not the master password.
func HashCredential(credentialKey string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(credentialKey), cost)
	if err != nil {
		return "", fmt.Errorf("error hashing credential: %w", err)
	}
	return string(hash), nil
}

// VerifyCredential reports whether credentialKey matches the stored bcrypt
// hash.
func VerifyCredential(credentialKey, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(credentialKey)) == nil
}

// RandomToken returns a URL-safe random string of n bytes of entropy.
// Used for share-link capability tokens.
func RandomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("error generating random token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
