package config

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// defaults returns the built-in fallback configuration, applied last during
// the merge so that environment variables and flags always win.
//
// The lockout and token lifetimes mirror the security policy of the
// original deployment: 5 failed logins lock the account for 15 minutes,
// access tokens live 15 minutes, refresh tokens 7 days.
func defaults() *StructuredConfig {
	return &StructuredConfig{
		App: App{
			TokenIssuer:          "vaultkeeper",
			AccessTokenDuration:  15 * time.Minute,
			RefreshTokenDuration: 7 * 24 * time.Hour,
			MFATokenDuration:     5 * time.Minute,
			MaxLoginAttempts:     5,
			LockoutDuration:      15 * time.Minute,
			MaxMFAAttempts:       5,
			MFAAttemptWindow:     5 * time.Minute,
			BcryptCost:           bcrypt.DefaultCost,
		},
		Server: Server{
			HTTPAddress:    "localhost:8080",
			RequestTimeout: 30 * time.Second,
		},
		Workers: Workers{
			RetentionWindow: 30 * 24 * time.Hour,
			SweepInterval:   time.Hour,
		},
	}
}
