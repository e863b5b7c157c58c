package service

import (
	"github.com/vaultkeeper/vaultkeeper/internal/config"
	"github.com/vaultkeeper/vaultkeeper/internal/logger"
	"github.com/vaultkeeper/vaultkeeper/internal/store"
)

// Services aggregates the business layer of the vault server.
type Services struct {
	AuthService   AuthService
	VaultService  VaultService
	SecretService SecretService
	ShareService  ShareService
	AuditSink     AuditSink
}

// NewServices wires every service to the shared storages and configuration.
func NewServices(storages *store.Storages, cfg *config.StructuredConfig, logger *logger.Logger) *Services {
	audit := NewAuditSink(storages.Audit, logger)
	authorizer := NewVaultAuthorizer(storages.Vaults)

	return &Services{
		AuthService:   NewAuthService(storages, cfg.App, audit, logger),
		VaultService:  NewVaultService(storages.Vaults, storages.Folders, authorizer, audit, logger),
		SecretService: NewSecretService(storages.Secrets, storages.Folders, authorizer, audit, logger),
		ShareService:  NewShareService(storages.Shares, storages.Secrets, authorizer, audit, logger),
		AuditSink:     audit,
	}
}
