package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/vaultkeeper/vaultkeeper/internal/store"
)

// vaultAuthorizer is the ownership-based [Authorizer]: a vault is accessible
// to its owner and nobody else. Org-membership checks would slot in here
// when organization vaults grow members.
type vaultAuthorizer struct {
	vaults store.VaultRepository
}

// NewVaultAuthorizer constructs the ownership-based [Authorizer].
func NewVaultAuthorizer(vaults store.VaultRepository) Authorizer {
	return &vaultAuthorizer{vaults: vaults}
}

func (a *vaultAuthorizer) CanAccessVault(ctx context.Context, userID, vaultID uuid.UUID) error {
	vault, err := a.vaults.FindByID(ctx, vaultID)
	if err != nil {
		if errors.Is(err, store.ErrVaultNotFound) {
			return err
		}
		return fmt.Errorf("vault lookup failed: %w", err)
	}
	if vault.OwnerID != userID {
		return ErrAccessDenied
	}

	return nil
}
