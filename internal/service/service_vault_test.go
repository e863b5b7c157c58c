package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultkeeper/vaultkeeper/internal/logger"
	"github.com/vaultkeeper/vaultkeeper/models"
)

func newTestVaultService(vaults *fakeVaultRepo, folders *fakeFolderRepo, authorizer Authorizer) (*vaultService, *recordingAudit) {
	audit := &recordingAudit{}
	if authorizer == nil {
		authorizer = &funcAuthorizer{}
	}
	return &vaultService{
		vaults:     vaults,
		folders:    folders,
		authorizer: authorizer,
		audit:      audit,
		logger:     logger.Nop(),
	}, audit
}

func TestVaultCreate_DefaultsToPersonal(t *testing.T) {
	ownerID := uuid.New()

	var created models.Vault
	vaults := &fakeVaultRepo{
		createFn: func(_ context.Context, vault models.Vault) (models.Vault, error) {
			created = vault
			vault.ID = uuid.New()
			return vault, nil
		},
	}
	svc, audit := newTestVaultService(vaults, &fakeFolderRepo{}, nil)

	_, err := svc.CreateVault(context.Background(), ownerID, models.CreateVaultRequest{
		NameCiphertext: "enc:name",
	})
	require.NoError(t, err)
	assert.Equal(t, models.VaultTypePersonal, created.Type)
	assert.Equal(t, ownerID, created.OwnerID)
	assert.Contains(t, audit.actions(), "vault.created")
}

func TestVaultGet_ForeignVaultDenied(t *testing.T) {
	authorizer := &funcAuthorizer{fn: func(_ context.Context, _, _ uuid.UUID) error {
		return ErrAccessDenied
	}}
	svc, _ := newTestVaultService(&fakeVaultRepo{}, &fakeFolderRepo{}, authorizer)

	_, err := svc.GetVault(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestVaultDelete_Audited(t *testing.T) {
	deleted := false
	vaults := &fakeVaultRepo{
		deleteFn: func(_ context.Context, _ uuid.UUID) error {
			deleted = true
			return nil
		},
	}
	svc, audit := newTestVaultService(vaults, &fakeFolderRepo{}, nil)

	require.NoError(t, svc.DeleteVault(context.Background(), uuid.New(), uuid.New()))
	assert.True(t, deleted)
	assert.Contains(t, audit.actions(), "vault.deleted")
}

func TestFolderCreate_ParentMustShareVault(t *testing.T) {
	parentID := uuid.New()
	folders := &fakeFolderRepo{
		findByIDFn: func(_ context.Context, id uuid.UUID) (models.Folder, error) {
			return models.Folder{ID: id, VaultID: uuid.New()}, nil
		},
	}
	svc, _ := newTestVaultService(&fakeVaultRepo{}, folders, nil)

	_, err := svc.CreateFolder(context.Background(), uuid.New(), models.CreateFolderRequest{
		VaultID:        uuid.New(),
		NameCiphertext: "enc:folder",
		ParentID:       &parentID,
	})
	assert.ErrorIs(t, err, ErrInvalidDataProvided)
}

func TestFolderMove_SelfParentRejected(t *testing.T) {
	svc, _ := newTestVaultService(&fakeVaultRepo{}, &fakeFolderRepo{}, nil)

	folderID := uuid.New()
	err := svc.MoveFolder(context.Background(), uuid.New(), folderID, &folderID)
	assert.ErrorIs(t, err, ErrFolderCycle)
}

func TestFolderMove_DescendantParentRejected(t *testing.T) {
	// Tree: root -> child -> grandchild. Re-parenting root under grandchild
	// would close a cycle.
	vaultID := uuid.New()
	rootID := uuid.New()
	childID := uuid.New()
	grandchildID := uuid.New()

	tree := map[uuid.UUID]models.Folder{
		rootID:       {ID: rootID, VaultID: vaultID},
		childID:      {ID: childID, VaultID: vaultID, ParentID: &rootID},
		grandchildID: {ID: grandchildID, VaultID: vaultID, ParentID: &childID},
	}
	folders := &fakeFolderRepo{
		findByIDFn: func(_ context.Context, id uuid.UUID) (models.Folder, error) {
			return tree[id], nil
		},
	}
	svc, _ := newTestVaultService(&fakeVaultRepo{}, folders, nil)

	err := svc.MoveFolder(context.Background(), uuid.New(), rootID, &grandchildID)
	assert.ErrorIs(t, err, ErrFolderCycle)
}

func TestFolderMove_SiblingParentAllowed(t *testing.T) {
	vaultID := uuid.New()
	folderID := uuid.New()
	siblingID := uuid.New()

	tree := map[uuid.UUID]models.Folder{
		folderID:  {ID: folderID, VaultID: vaultID},
		siblingID: {ID: siblingID, VaultID: vaultID},
	}
	var movedTo *uuid.UUID
	folders := &fakeFolderRepo{
		findByIDFn: func(_ context.Context, id uuid.UUID) (models.Folder, error) {
			return tree[id], nil
		},
		setParentFn: func(_ context.Context, _ uuid.UUID, parentID *uuid.UUID) error {
			movedTo = parentID
			return nil
		},
	}
	svc, _ := newTestVaultService(&fakeVaultRepo{}, folders, nil)

	require.NoError(t, svc.MoveFolder(context.Background(), uuid.New(), folderID, &siblingID))
	require.NotNil(t, movedTo)
	assert.Equal(t, siblingID, *movedTo)
}

func TestFolderMove_CrossVaultParentRejected(t *testing.T) {
	folderID := uuid.New()
	parentID := uuid.New()

	tree := map[uuid.UUID]models.Folder{
		folderID: {ID: folderID, VaultID: uuid.New()},
		parentID: {ID: parentID, VaultID: uuid.New()},
	}
	folders := &fakeFolderRepo{
		findByIDFn: func(_ context.Context, id uuid.UUID) (models.Folder, error) {
			return tree[id], nil
		},
	}
	svc, _ := newTestVaultService(&fakeVaultRepo{}, folders, nil)

	err := svc.MoveFolder(context.Background(), uuid.New(), folderID, &parentID)
	assert.ErrorIs(t, err, ErrInvalidDataProvided)
}

func TestFolderMove_ToRoot(t *testing.T) {
	var movedTo *uuid.UUID
	called := false
	folders := &fakeFolderRepo{
		setParentFn: func(_ context.Context, _ uuid.UUID, parentID *uuid.UUID) error {
			called = true
			movedTo = parentID
			return nil
		},
	}
	svc, _ := newTestVaultService(&fakeVaultRepo{}, folders, nil)

	require.NoError(t, svc.MoveFolder(context.Background(), uuid.New(), uuid.New(), nil))
	assert.True(t, called)
	assert.Nil(t, movedTo)
}
