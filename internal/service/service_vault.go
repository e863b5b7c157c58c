package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/vaultkeeper/vaultkeeper/internal/logger"
	"github.com/vaultkeeper/vaultkeeper/internal/store"
	"github.com/vaultkeeper/vaultkeeper/models"
)

// vaultService is the concrete implementation of [VaultService].
type vaultService struct {
	vaults  store.VaultRepository
	folders store.FolderRepository

	authorizer Authorizer
	audit      AuditSink

	logger *logger.Logger
}

// NewVaultService constructs a [VaultService].
func NewVaultService(vaults store.VaultRepository, folders store.FolderRepository, authorizer Authorizer, audit AuditSink, logger *logger.Logger) VaultService {
	return &vaultService{
		vaults:     vaults,
		folders:    folders,
		authorizer: authorizer,
		audit:      audit,
		logger:     logger,
	}
}

// CreateVault adds a vault owned by the caller. An empty type defaults to
// personal.
func (s *vaultService) CreateVault(ctx context.Context, ownerID uuid.UUID, req models.CreateVaultRequest) (models.Vault, error) {
	log := logger.FromContext(ctx)

	vaultType := req.Type
	if vaultType == "" {
		vaultType = models.VaultTypePersonal
	}

	vault, err := s.vaults.Create(ctx, models.Vault{
		OwnerID:               ownerID,
		OrgID:                 req.OrgID,
		Type:                  vaultType,
		NameCiphertext:        req.NameCiphertext,
		DescriptionCiphertext: req.DescriptionCiphertext,
		Icon:                  req.Icon,
	})
	if err != nil {
		log.Err(err).Msg("vault creation failed")
		return models.Vault{}, fmt.Errorf("vault creation failed: %w", err)
	}

	s.audit.Record(ctx, models.AuditRecord{
		ActorID:      &ownerID,
		OrgID:        vault.OrgID,
		Action:       "vault.created",
		ResourceType: "vault",
		ResourceID:   vault.ID.String(),
	})

	return vault, nil
}

// ListVaults returns the caller's vaults.
func (s *vaultService) ListVaults(ctx context.Context, ownerID uuid.UUID) ([]models.Vault, error) {
	return s.vaults.ListByOwner(ctx, ownerID)
}

// GetVault returns one vault after an ownership check.
func (s *vaultService) GetVault(ctx context.Context, userID, vaultID uuid.UUID) (models.Vault, error) {
	if err := s.authorizer.CanAccessVault(ctx, userID, vaultID); err != nil {
		return models.Vault{}, err
	}

	return s.vaults.FindByID(ctx, vaultID)
}

// UpdateVault applies the owner's edits.
func (s *vaultService) UpdateVault(ctx context.Context, userID, vaultID uuid.UUID, update models.VaultUpdate) (models.Vault, error) {
	if err := s.authorizer.CanAccessVault(ctx, userID, vaultID); err != nil {
		return models.Vault{}, err
	}

	return s.vaults.Update(ctx, vaultID, update)
}

// DeleteVault removes the vault with everything inside it.
func (s *vaultService) DeleteVault(ctx context.Context, userID, vaultID uuid.UUID) error {
	if err := s.authorizer.CanAccessVault(ctx, userID, vaultID); err != nil {
		return err
	}

	if err := s.vaults.Delete(ctx, vaultID); err != nil {
		return err
	}

	s.audit.Record(ctx, models.AuditRecord{
		ActorID:      &userID,
		Action:       "vault.deleted",
		ResourceType: "vault",
		ResourceID:   vaultID.String(),
	})

	return nil
}

// CreateFolder adds a folder to a vault the caller owns. A parent, when
// given, must live in the same vault.
func (s *vaultService) CreateFolder(ctx context.Context, userID uuid.UUID, req models.CreateFolderRequest) (models.Folder, error) {
	if err := s.authorizer.CanAccessVault(ctx, userID, req.VaultID); err != nil {
		return models.Folder{}, err
	}

	if req.ParentID != nil {
		parent, err := s.folders.FindByID(ctx, *req.ParentID)
		if err != nil {
			return models.Folder{}, err
		}
		if parent.VaultID != req.VaultID {
			return models.Folder{}, ErrInvalidDataProvided
		}
	}

	return s.folders.Create(ctx, models.Folder{
		VaultID:        req.VaultID,
		NameCiphertext: req.NameCiphertext,
		ParentID:       req.ParentID,
	})
}

// ListFolders returns the vault's folders.
func (s *vaultService) ListFolders(ctx context.Context, userID, vaultID uuid.UUID) ([]models.Folder, error) {
	if err := s.authorizer.CanAccessVault(ctx, userID, vaultID); err != nil {
		return nil, err
	}

	return s.folders.ListByVault(ctx, vaultID)
}

// MoveFolder re-parents a folder. The new parent must sit in the same vault
// and must not be the folder itself or any of its descendants; the ancestry
// walk happens here, at write time, so the tree can never contain a cycle.
func (s *vaultService) MoveFolder(ctx context.Context, userID, folderID uuid.UUID, parentID *uuid.UUID) error {
	folder, err := s.folders.FindByID(ctx, folderID)
	if err != nil {
		return err
	}
	if err := s.authorizer.CanAccessVault(ctx, userID, folder.VaultID); err != nil {
		return err
	}

	if parentID != nil {
		if *parentID == folderID {
			return ErrFolderCycle
		}

		// Walk up from the candidate parent; hitting the folder means the
		// parent is one of its descendants.
		cursor := *parentID
		for {
			parent, err := s.folders.FindByID(ctx, cursor)
			if err != nil {
				return err
			}
			if parent.VaultID != folder.VaultID {
				return ErrInvalidDataProvided
			}
			if parent.ParentID == nil {
				break
			}
			if *parent.ParentID == folderID {
				return ErrFolderCycle
			}
			cursor = *parent.ParentID
		}
	}

	return s.folders.SetParent(ctx, folderID, parentID)
}
