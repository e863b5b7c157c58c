package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultkeeper/vaultkeeper/internal/logger"
	"github.com/vaultkeeper/vaultkeeper/models"
)

func newTestSecretService(secrets *fakeSecretRepo, folders *fakeFolderRepo, authorizer Authorizer) (*secretService, *recordingAudit) {
	audit := &recordingAudit{}
	if authorizer == nil {
		authorizer = &funcAuthorizer{}
	}
	return &secretService{
		secrets:    secrets,
		folders:    folders,
		authorizer: authorizer,
		audit:      audit,
		logger:     logger.Nop(),
	}, audit
}

func TestSecretCreate_Success(t *testing.T) {
	userID := uuid.New()
	vaultID := uuid.New()
	var createdBy uuid.UUID

	secrets := &fakeSecretRepo{
		createFn: func(_ context.Context, secret models.Secret, by uuid.UUID) (models.Secret, error) {
			createdBy = by
			secret.ID = uuid.New()
			return secret, nil
		},
	}
	svc, audit := newTestSecretService(secrets, &fakeFolderRepo{}, nil)

	secret, err := svc.Create(context.Background(), userID, models.CreateSecretRequest{
		VaultID:        vaultID,
		Type:           models.SecretTypeLogin,
		NameCiphertext: "enc:name",
		DataCiphertext: "enc:data",
		ItemKeyWrapped: "enc:itemkey",
	})
	require.NoError(t, err)
	assert.Equal(t, vaultID, secret.VaultID)
	assert.Equal(t, userID, createdBy)
	assert.Contains(t, audit.actions(), "secret.created")
}

func TestSecretCreate_UnknownType(t *testing.T) {
	svc, _ := newTestSecretService(&fakeSecretRepo{}, &fakeFolderRepo{}, nil)

	_, err := svc.Create(context.Background(), uuid.New(), models.CreateSecretRequest{
		VaultID:        uuid.New(),
		Type:           "carrier_pigeon",
		NameCiphertext: "enc:name",
		DataCiphertext: "enc:data",
		ItemKeyWrapped: "enc:itemkey",
	})
	assert.ErrorIs(t, err, ErrInvalidDataProvided)
}

func TestSecretCreate_FolderFromAnotherVault(t *testing.T) {
	folderID := uuid.New()
	folders := &fakeFolderRepo{
		findByIDFn: func(_ context.Context, id uuid.UUID) (models.Folder, error) {
			return models.Folder{ID: id, VaultID: uuid.New()}, nil
		},
	}
	svc, _ := newTestSecretService(&fakeSecretRepo{}, folders, nil)

	_, err := svc.Create(context.Background(), uuid.New(), models.CreateSecretRequest{
		VaultID:        uuid.New(),
		Type:           models.SecretTypeLogin,
		NameCiphertext: "enc:name",
		DataCiphertext: "enc:data",
		ItemKeyWrapped: "enc:itemkey",
		FolderID:       &folderID,
	})
	assert.ErrorIs(t, err, ErrInvalidDataProvided)
}

func TestSecretCreate_ForeignVaultDenied(t *testing.T) {
	authorizer := &funcAuthorizer{fn: func(_ context.Context, _, _ uuid.UUID) error {
		return ErrAccessDenied
	}}
	svc, _ := newTestSecretService(&fakeSecretRepo{}, &fakeFolderRepo{}, authorizer)

	_, err := svc.Create(context.Background(), uuid.New(), models.CreateSecretRequest{
		VaultID:        uuid.New(),
		Type:           models.SecretTypeLogin,
		NameCiphertext: "enc:name",
		DataCiphertext: "enc:data",
		ItemKeyWrapped: "enc:itemkey",
	})
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestSecretGet_TouchesLiveSecret(t *testing.T) {
	touched := false
	secrets := &fakeSecretRepo{
		findByIDFn: func(_ context.Context, id uuid.UUID) (models.Secret, error) {
			return models.Secret{ID: id, VaultID: uuid.New(), AccessCount: 6}, nil
		},
		touchAccessFn: func(_ context.Context, _ uuid.UUID) error {
			touched = true
			return nil
		},
	}
	svc, _ := newTestSecretService(secrets, &fakeFolderRepo{}, nil)

	secret, err := svc.Get(context.Background(), uuid.New(), uuid.New())
	require.NoError(t, err)
	assert.True(t, touched)
	assert.Equal(t, int64(7), secret.AccessCount)
}

func TestSecretGet_TrashedSecretNotTouched(t *testing.T) {
	touched := false
	secrets := &fakeSecretRepo{
		findByIDFn: func(_ context.Context, id uuid.UUID) (models.Secret, error) {
			return models.Secret{ID: id, VaultID: uuid.New(), IsDeleted: true}, nil
		},
		touchAccessFn: func(_ context.Context, _ uuid.UUID) error {
			touched = true
			return nil
		},
	}
	svc, _ := newTestSecretService(secrets, &fakeFolderRepo{}, nil)

	secret, err := svc.Get(context.Background(), uuid.New(), uuid.New())
	require.NoError(t, err)
	assert.True(t, secret.IsDeleted)
	assert.False(t, touched, "trash reads must not count as access")
}

func TestSecretList_UnscopedListingPinnedToOwner(t *testing.T) {
	userID := uuid.New()
	var gotFilter models.SecretFilter

	secrets := &fakeSecretRepo{
		listFn: func(_ context.Context, filter models.SecretFilter) ([]models.Secret, error) {
			gotFilter = filter
			return nil, nil
		},
	}
	svc, _ := newTestSecretService(secrets, &fakeFolderRepo{}, nil)

	_, err := svc.List(context.Background(), userID, models.SecretFilter{State: models.SecretStateActive})
	require.NoError(t, err)
	require.NotNil(t, gotFilter.OwnerID)
	assert.Equal(t, userID, *gotFilter.OwnerID)
}

func TestSecretPurge_RequiresTrash(t *testing.T) {
	secrets := &fakeSecretRepo{
		findByIDFn: func(_ context.Context, id uuid.UUID) (models.Secret, error) {
			return models.Secret{ID: id, VaultID: uuid.New(), IsDeleted: false}, nil
		},
	}
	svc, _ := newTestSecretService(secrets, &fakeFolderRepo{}, nil)

	err := svc.Purge(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrSecretNotInTrash)
}

func TestSecretPurge_TrashedSecretRemoved(t *testing.T) {
	deleted := false
	secrets := &fakeSecretRepo{
		findByIDFn: func(_ context.Context, id uuid.UUID) (models.Secret, error) {
			return models.Secret{ID: id, VaultID: uuid.New(), IsDeleted: true}, nil
		},
		deleteFn: func(_ context.Context, _ uuid.UUID) error {
			deleted = true
			return nil
		},
	}
	svc, audit := newTestSecretService(secrets, &fakeFolderRepo{}, nil)

	require.NoError(t, svc.Purge(context.Background(), uuid.New(), uuid.New()))
	assert.True(t, deleted)
	assert.Contains(t, audit.actions(), "secret.purged")
}

func TestSecretMove_RequiresRewrappedKey(t *testing.T) {
	svc, _ := newTestSecretService(&fakeSecretRepo{}, &fakeFolderRepo{}, nil)

	_, err := svc.Move(context.Background(), uuid.New(), uuid.New(), models.MoveSecretRequest{
		TargetVaultID: uuid.New(),
	})
	assert.ErrorIs(t, err, ErrInvalidDataProvided)
}

func TestSecretMove_ChecksBothVaults(t *testing.T) {
	userID := uuid.New()
	sourceVault := uuid.New()
	targetVault := uuid.New()

	var checkedVaults []uuid.UUID
	authorizer := &funcAuthorizer{fn: func(_ context.Context, _, vaultID uuid.UUID) error {
		checkedVaults = append(checkedVaults, vaultID)
		return nil
	}}
	secrets := &fakeSecretRepo{
		findByIDFn: func(_ context.Context, id uuid.UUID) (models.Secret, error) {
			return models.Secret{ID: id, VaultID: sourceVault}, nil
		},
	}
	svc, _ := newTestSecretService(secrets, &fakeFolderRepo{}, authorizer)

	_, err := svc.Move(context.Background(), userID, uuid.New(), models.MoveSecretRequest{
		TargetVaultID:  targetVault,
		ItemKeyWrapped: "enc:rewrapped",
	})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{sourceVault, targetVault}, checkedVaults)
}

func TestSecretDuplicate_CopiesContentIntoFreshHistory(t *testing.T) {
	sourceID := uuid.New()
	vaultID := uuid.New()
	folderID := uuid.New()

	var copied models.Secret
	secrets := &fakeSecretRepo{
		findByIDFn: func(_ context.Context, id uuid.UUID) (models.Secret, error) {
			return models.Secret{
				ID:             id,
				VaultID:        vaultID,
				FolderID:       &folderID,
				Type:           models.SecretTypeLogin,
				DataCiphertext: "enc:data",
				ItemKeyWrapped: "enc:original-key",
			}, nil
		},
		createFn: func(_ context.Context, secret models.Secret, _ uuid.UUID) (models.Secret, error) {
			copied = secret
			secret.ID = uuid.New()
			return secret, nil
		},
	}
	svc, _ := newTestSecretService(secrets, &fakeFolderRepo{}, nil)

	_, err := svc.Duplicate(context.Background(), uuid.New(), sourceID, models.DuplicateSecretRequest{
		NameCiphertext: "enc:copy-name",
		ItemKeyWrapped: "enc:copy-key",
	})
	require.NoError(t, err)
	assert.Equal(t, vaultID, copied.VaultID)
	assert.Equal(t, "enc:data", copied.DataCiphertext)
	assert.Equal(t, "enc:copy-key", copied.ItemKeyWrapped)
	require.NotNil(t, copied.FolderID)
	assert.Equal(t, folderID, *copied.FolderID, "same-vault duplicate keeps the folder")
}

func TestSecretDuplicate_CrossVaultDropsFolder(t *testing.T) {
	targetVault := uuid.New()

	var copied models.Secret
	folderID := uuid.New()
	secrets := &fakeSecretRepo{
		findByIDFn: func(_ context.Context, id uuid.UUID) (models.Secret, error) {
			return models.Secret{ID: id, VaultID: uuid.New(), FolderID: &folderID, Type: models.SecretTypeLogin}, nil
		},
		createFn: func(_ context.Context, secret models.Secret, _ uuid.UUID) (models.Secret, error) {
			copied = secret
			return secret, nil
		},
	}
	svc, _ := newTestSecretService(secrets, &fakeFolderRepo{}, nil)

	_, err := svc.Duplicate(context.Background(), uuid.New(), uuid.New(), models.DuplicateSecretRequest{
		NameCiphertext: "enc:copy-name",
		ItemKeyWrapped: "enc:copy-key",
		TargetVaultID:  &targetVault,
	})
	require.NoError(t, err)
	assert.Equal(t, targetVault, copied.VaultID)
	assert.Nil(t, copied.FolderID, "folders do not follow secrets across vaults")
}

func TestSecretDelete_RecordsSoftDeleteTime(t *testing.T) {
	var deletedAt time.Time
	secrets := &fakeSecretRepo{
		findByIDFn: func(_ context.Context, id uuid.UUID) (models.Secret, error) {
			return models.Secret{ID: id, VaultID: uuid.New()}, nil
		},
		softDeleteFn: func(_ context.Context, _ uuid.UUID, at time.Time) error {
			deletedAt = at
			return nil
		},
	}
	svc, _ := newTestSecretService(secrets, &fakeFolderRepo{}, nil)

	require.NoError(t, svc.Delete(context.Background(), uuid.New(), uuid.New()))
	assert.WithinDuration(t, time.Now(), deletedAt, 2*time.Second)
}
