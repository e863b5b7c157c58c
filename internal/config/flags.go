package config

import (
	"flag"
	"time"
)

// ParseFlags parses all configuration flags into a partial config.
//
// Flags:
//
//	-a server address in format [host]:[port]
//	-d database DSN
//	-token-sign-key token signing key
//	-token-issuer token issuer name
//	-request-timeout request timeout (e.g. "30s", "1m")
func ParseFlags() *StructuredConfig {
	var httpAddress string
	var databaseDSN string
	var tokenSignKey string
	var tokenIssuer string
	var requestTimeout time.Duration

	flag.StringVar(&httpAddress, "a", "", "Net address host:port")
	flag.StringVar(&databaseDSN, "d", "", "Database DSN")
	flag.StringVar(&tokenSignKey, "token-sign-key", "", "Token signing key")
	flag.StringVar(&tokenIssuer, "token-issuer", "", "Token issuer")
	flag.DurationVar(&requestTimeout, "request-timeout", 0, "Request timeout (e.g. 30s, 1m)")

	flag.Parse()

	return &StructuredConfig{
		App: App{
			TokenSignKey: tokenSignKey,
			TokenIssuer:  tokenIssuer,
		},
		Storage: Storage{
			DB: DB{DSN: databaseDSN},
		},
		Server: Server{
			HTTPAddress:    httpAddress,
			RequestTimeout: requestTimeout,
		},
	}
}
