package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vaultkeeper/vaultkeeper/internal/logger"
	"github.com/vaultkeeper/vaultkeeper/internal/store"
	"github.com/vaultkeeper/vaultkeeper/models"
)

// secretService is the concrete implementation of [SecretService].
//
// Every operation resolves the secret first and authorizes against the
// vault it lives in; the repository then enforces the lifecycle rules
// (deleted rows reject edits, versions only grow) at the SQL level.
type secretService struct {
	secrets store.SecretRepository
	folders store.FolderRepository

	authorizer Authorizer
	audit      AuditSink

	logger *logger.Logger
}

// NewSecretService constructs a [SecretService].
func NewSecretService(secrets store.SecretRepository, folders store.FolderRepository, authorizer Authorizer, audit AuditSink, logger *logger.Logger) SecretService {
	return &secretService{
		secrets:    secrets,
		folders:    folders,
		authorizer: authorizer,
		audit:      audit,
		logger:     logger,
	}
}

// Create stores a new secret and its version-1 snapshot.
func (s *secretService) Create(ctx context.Context, userID uuid.UUID, req models.CreateSecretRequest) (models.Secret, error) {
	log := logger.FromContext(ctx)

	if !req.Type.Valid() {
		return models.Secret{}, ErrInvalidDataProvided
	}
	if req.NameCiphertext == "" || req.DataCiphertext == "" || req.ItemKeyWrapped == "" {
		return models.Secret{}, ErrInvalidDataProvided
	}
	if err := s.authorizer.CanAccessVault(ctx, userID, req.VaultID); err != nil {
		return models.Secret{}, err
	}
	if req.FolderID != nil {
		folder, err := s.folders.FindByID(ctx, *req.FolderID)
		if err != nil {
			return models.Secret{}, err
		}
		if folder.VaultID != req.VaultID {
			return models.Secret{}, ErrInvalidDataProvided
		}
	}

	secret, err := s.secrets.Create(ctx, models.Secret{
		VaultID:            req.VaultID,
		FolderID:           req.FolderID,
		Type:               req.Type,
		NameCiphertext:     req.NameCiphertext,
		DataCiphertext:     req.DataCiphertext,
		ItemKeyWrapped:     req.ItemKeyWrapped,
		MetadataCiphertext: req.MetadataCiphertext,
		Favorite:           req.Favorite,
	}, userID)
	if err != nil {
		log.Err(err).Msg("secret creation failed")
		return models.Secret{}, fmt.Errorf("secret creation failed: %w", err)
	}

	s.audit.Record(ctx, models.AuditRecord{
		ActorID:      &userID,
		Action:       "secret.created",
		ResourceType: "secret",
		ResourceID:   secret.ID.String(),
	})

	return secret, nil
}

// Get returns one secret, bumping its access statistics when it is live.
// Trashed secrets are still readable so the client can render the trash.
func (s *secretService) Get(ctx context.Context, userID, secretID uuid.UUID) (models.Secret, error) {
	secret, err := s.authorized(ctx, userID, secretID)
	if err != nil {
		return models.Secret{}, err
	}

	if !secret.IsDeleted {
		if err := s.secrets.TouchAccess(ctx, secretID); err != nil {
			logger.FromContext(ctx).Err(err).Msg("access accounting failed")
		} else {
			secret.AccessCount++
		}
	}

	return secret, nil
}

// List returns the caller's secrets in the requested lifecycle bucket. A
// vault-scoped listing checks ownership of that vault; otherwise the filter
// is pinned to the caller's own vaults.
func (s *secretService) List(ctx context.Context, userID uuid.UUID, filter models.SecretFilter) ([]models.Secret, error) {
	if filter.VaultID != nil {
		if err := s.authorizer.CanAccessVault(ctx, userID, *filter.VaultID); err != nil {
			return nil, err
		}
	} else {
		filter.OwnerID = &userID
	}

	return s.secrets.List(ctx, filter)
}

// Update applies edits to a live secret. A content change appends a new
// version; a folder change must stay inside the secret's vault.
func (s *secretService) Update(ctx context.Context, userID, secretID uuid.UUID, update models.SecretUpdate) (models.Secret, error) {
	secret, err := s.authorized(ctx, userID, secretID)
	if err != nil {
		return models.Secret{}, err
	}
	if update.Type != nil && !update.Type.Valid() {
		return models.Secret{}, ErrInvalidDataProvided
	}
	if update.FolderID != nil {
		folder, err := s.folders.FindByID(ctx, *update.FolderID)
		if err != nil {
			return models.Secret{}, err
		}
		if folder.VaultID != secret.VaultID {
			return models.Secret{}, ErrInvalidDataProvided
		}
	}

	updated, err := s.secrets.Update(ctx, secretID, update, userID)
	if err != nil {
		return models.Secret{}, err
	}

	s.audit.Record(ctx, models.AuditRecord{
		ActorID:      &userID,
		Action:       "secret.updated",
		ResourceType: "secret",
		ResourceID:   secretID.String(),
		Metadata:     map[string]any{"content_changed": update.ContentChanged()},
	})

	return updated, nil
}

// Archive moves a live secret out of the active listings.
func (s *secretService) Archive(ctx context.Context, userID, secretID uuid.UUID) error {
	return s.setArchived(ctx, userID, secretID, true)
}

// Unarchive returns an archived secret to the active bucket.
func (s *secretService) Unarchive(ctx context.Context, userID, secretID uuid.UUID) error {
	return s.setArchived(ctx, userID, secretID, false)
}

func (s *secretService) setArchived(ctx context.Context, userID, secretID uuid.UUID, archived bool) error {
	if _, err := s.authorized(ctx, userID, secretID); err != nil {
		return err
	}

	return s.secrets.SetArchived(ctx, secretID, archived)
}

// Delete soft-deletes the secret, starting its retention clock.
func (s *secretService) Delete(ctx context.Context, userID, secretID uuid.UUID) error {
	if _, err := s.authorized(ctx, userID, secretID); err != nil {
		return err
	}

	if err := s.secrets.SoftDelete(ctx, secretID, time.Now()); err != nil {
		return err
	}

	s.audit.Record(ctx, models.AuditRecord{
		ActorID:      &userID,
		Action:       "secret.deleted",
		ResourceType: "secret",
		ResourceID:   secretID.String(),
	})

	return nil
}

// Restore pulls a secret out of the trash, history intact.
func (s *secretService) Restore(ctx context.Context, userID, secretID uuid.UUID) error {
	if _, err := s.authorized(ctx, userID, secretID); err != nil {
		return err
	}

	if err := s.secrets.Restore(ctx, secretID); err != nil {
		return err
	}

	s.audit.Record(ctx, models.AuditRecord{
		ActorID:      &userID,
		Action:       "secret.restored",
		ResourceType: "secret",
		ResourceID:   secretID.String(),
	})

	return nil
}

// Purge permanently removes a trashed secret ahead of the retention sweep.
// Live secrets must go through Delete first.
func (s *secretService) Purge(ctx context.Context, userID, secretID uuid.UUID) error {
	secret, err := s.authorized(ctx, userID, secretID)
	if err != nil {
		return err
	}
	if !secret.IsDeleted {
		return ErrSecretNotInTrash
	}

	if err := s.secrets.Delete(ctx, secretID); err != nil {
		return err
	}

	s.audit.Record(ctx, models.AuditRecord{
		ActorID:      &userID,
		Action:       "secret.purged",
		ResourceType: "secret",
		ResourceID:   secretID.String(),
	})

	return nil
}

// Move relocates a secret into another vault the caller owns. The client
// supplies the item key re-wrapped under the destination vault's key; the
// server cannot re-encrypt. Any folder association is dropped.
func (s *secretService) Move(ctx context.Context, userID, secretID uuid.UUID, req models.MoveSecretRequest) (models.Secret, error) {
	if req.ItemKeyWrapped == "" {
		return models.Secret{}, ErrInvalidDataProvided
	}
	if _, err := s.authorized(ctx, userID, secretID); err != nil {
		return models.Secret{}, err
	}
	if err := s.authorizer.CanAccessVault(ctx, userID, req.TargetVaultID); err != nil {
		return models.Secret{}, err
	}

	if err := s.secrets.Move(ctx, secretID, req.TargetVaultID, req.ItemKeyWrapped); err != nil {
		return models.Secret{}, err
	}

	s.audit.Record(ctx, models.AuditRecord{
		ActorID:      &userID,
		Action:       "secret.moved",
		ResourceType: "secret",
		ResourceID:   secretID.String(),
		Metadata:     map[string]any{"target_vault_id": req.TargetVaultID.String()},
	})

	return s.secrets.FindByID(ctx, secretID)
}

// Duplicate copies the secret's current content into a new secret with its
// own fresh history, optionally into another vault the caller owns.
func (s *secretService) Duplicate(ctx context.Context, userID, secretID uuid.UUID, req models.DuplicateSecretRequest) (models.Secret, error) {
	if req.NameCiphertext == "" || req.ItemKeyWrapped == "" {
		return models.Secret{}, ErrInvalidDataProvided
	}

	source, err := s.authorized(ctx, userID, secretID)
	if err != nil {
		return models.Secret{}, err
	}

	targetVaultID := source.VaultID
	if req.TargetVaultID != nil {
		targetVaultID = *req.TargetVaultID
		if err := s.authorizer.CanAccessVault(ctx, userID, targetVaultID); err != nil {
			return models.Secret{}, err
		}
	}

	var folderID *uuid.UUID
	if targetVaultID == source.VaultID {
		folderID = source.FolderID
	}

	copied, err := s.secrets.Create(ctx, models.Secret{
		VaultID:            targetVaultID,
		FolderID:           folderID,
		Type:               source.Type,
		NameCiphertext:     req.NameCiphertext,
		DataCiphertext:     source.DataCiphertext,
		ItemKeyWrapped:     req.ItemKeyWrapped,
		MetadataCiphertext: source.MetadataCiphertext,
	}, userID)
	if err != nil {
		return models.Secret{}, fmt.Errorf("secret duplication failed: %w", err)
	}

	s.audit.Record(ctx, models.AuditRecord{
		ActorID:      &userID,
		Action:       "secret.duplicated",
		ResourceType: "secret",
		ResourceID:   copied.ID.String(),
		Metadata:     map[string]any{"source_secret_id": secretID.String()},
	})

	return copied, nil
}

// Versions returns the secret's history, newest first.
func (s *secretService) Versions(ctx context.Context, userID, secretID uuid.UUID) ([]models.SecretVersion, error) {
	if _, err := s.authorized(ctx, userID, secretID); err != nil {
		return nil, err
	}

	return s.secrets.Versions(ctx, secretID)
}

// authorized resolves the secret and checks ownership of its vault.
func (s *secretService) authorized(ctx context.Context, userID, secretID uuid.UUID) (models.Secret, error) {
	secret, err := s.secrets.FindByID(ctx, secretID)
	if err != nil {
		return models.Secret{}, err
	}
	if err := s.authorizer.CanAccessVault(ctx, userID, secret.VaultID); err != nil {
		return models.Secret{}, err
	}

	return secret, nil
}
