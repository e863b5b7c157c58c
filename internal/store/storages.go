package store

import (
	"github.com/vaultkeeper/vaultkeeper/internal/logger"
)

// Storages aggregates all repositories sharing one database handle.
type Storages struct {
	Users    UserRepository
	Sessions SessionRepository
	MFA      MFARepository
	Vaults   VaultRepository
	Folders  FolderRepository
	Secrets  SecretRepository
	Shares   ShareRepository
	Audit    AuditRepository
}

// NewStorages wires every repository to the shared connection.
func NewStorages(db *DB, log *logger.Logger) *Storages {
	return &Storages{
		Users:    NewUserRepository(db, log),
		Sessions: NewSessionRepository(db, log),
		MFA:      NewMFARepository(db, log),
		Vaults:   NewVaultRepository(db, log),
		Folders:  NewFolderRepository(db, log),
		Secrets:  NewSecretRepository(db, log),
		Shares:   NewShareRepository(db, log),
		Audit:    NewAuditRepository(db, log),
	}
}
