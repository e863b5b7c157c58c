package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vaultkeeper/vaultkeeper/models"
)

// Func-field fakes for the repository interfaces. Unset fields return zero
// values, so each test wires only the calls it cares about.

var errStorage = errors.New("storage error")

type fakeUserRepo struct {
	createFn              func(ctx context.Context, user models.User) (models.User, error)
	findByEmailFn         func(ctx context.Context, email string) (models.User, error)
	findByIDFn            func(ctx context.Context, id uuid.UUID) (models.User, error)
	recordFailedLoginFn   func(ctx context.Context, id uuid.UUID, maxAttempts int, lockedUntil time.Time) (models.User, error)
	clearLockFn           func(ctx context.Context, id uuid.UUID) error
	resetFailedAttemptsFn func(ctx context.Context, id uuid.UUID) error
	recordMFAAttemptFn    func(ctx context.Context, id uuid.UUID, maxAttempts int, window time.Duration) (bool, error)
	setMFAEnabledFn       func(ctx context.Context, id uuid.UUID, enabled bool) error
	updateCredentialsFn   func(ctx context.Context, id uuid.UUID, hash, vaultKey, privateKey string) error
	deleteFn              func(ctx context.Context, id uuid.UUID) error
}

func (m *fakeUserRepo) Create(ctx context.Context, user models.User) (models.User, error) {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return user, nil
}

func (m *fakeUserRepo) FindByEmail(ctx context.Context, email string) (models.User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return models.User{}, nil
}

func (m *fakeUserRepo) FindByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return models.User{ID: id}, nil
}

func (m *fakeUserRepo) RecordFailedLogin(ctx context.Context, id uuid.UUID, maxAttempts int, lockedUntil time.Time) (models.User, error) {
	if m.recordFailedLoginFn != nil {
		return m.recordFailedLoginFn(ctx, id, maxAttempts, lockedUntil)
	}
	return models.User{ID: id}, nil
}

func (m *fakeUserRepo) ClearLock(ctx context.Context, id uuid.UUID) error {
	if m.clearLockFn != nil {
		return m.clearLockFn(ctx, id)
	}
	return nil
}

func (m *fakeUserRepo) ResetFailedAttempts(ctx context.Context, id uuid.UUID) error {
	if m.resetFailedAttemptsFn != nil {
		return m.resetFailedAttemptsFn(ctx, id)
	}
	return nil
}

func (m *fakeUserRepo) RecordMFAAttempt(ctx context.Context, id uuid.UUID, maxAttempts int, window time.Duration) (bool, error) {
	if m.recordMFAAttemptFn != nil {
		return m.recordMFAAttemptFn(ctx, id, maxAttempts, window)
	}
	return true, nil
}

func (m *fakeUserRepo) SetMFAEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	if m.setMFAEnabledFn != nil {
		return m.setMFAEnabledFn(ctx, id, enabled)
	}
	return nil
}

func (m *fakeUserRepo) UpdateCredentials(ctx context.Context, id uuid.UUID, hash, vaultKey, privateKey string) error {
	if m.updateCredentialsFn != nil {
		return m.updateCredentialsFn(ctx, id, hash, vaultKey, privateKey)
	}
	return nil
}

func (m *fakeUserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

type fakeSessionRepo struct {
	createFn               func(ctx context.Context, session models.Session) (models.Session, error)
	findByIDFn             func(ctx context.Context, id uuid.UUID) (models.Session, error)
	findByFingerprintFn    func(ctx context.Context, fingerprint string) (models.Session, error)
	rotateFn               func(ctx context.Context, oldFP, newFP string, expiresAt time.Time) (models.Session, error)
	deactivateFn           func(ctx context.Context, id uuid.UUID) error
	deactivateAllForUserFn func(ctx context.Context, userID uuid.UUID) (int64, error)
	deactivateOthersFn     func(ctx context.Context, userID uuid.UUID, keepFP string) (int64, error)
	listByUserFn           func(ctx context.Context, userID uuid.UUID) ([]models.Session, error)
}

func (m *fakeSessionRepo) Create(ctx context.Context, session models.Session) (models.Session, error) {
	if m.createFn != nil {
		return m.createFn(ctx, session)
	}
	return session, nil
}

func (m *fakeSessionRepo) FindByID(ctx context.Context, id uuid.UUID) (models.Session, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return models.Session{ID: id}, nil
}

func (m *fakeSessionRepo) FindActiveByFingerprint(ctx context.Context, fingerprint string) (models.Session, error) {
	if m.findByFingerprintFn != nil {
		return m.findByFingerprintFn(ctx, fingerprint)
	}
	return models.Session{}, nil
}

func (m *fakeSessionRepo) Rotate(ctx context.Context, oldFP, newFP string, expiresAt time.Time) (models.Session, error) {
	if m.rotateFn != nil {
		return m.rotateFn(ctx, oldFP, newFP, expiresAt)
	}
	return models.Session{}, nil
}

func (m *fakeSessionRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	if m.deactivateFn != nil {
		return m.deactivateFn(ctx, id)
	}
	return nil
}

func (m *fakeSessionRepo) DeactivateAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	if m.deactivateAllForUserFn != nil {
		return m.deactivateAllForUserFn(ctx, userID)
	}
	return 0, nil
}

func (m *fakeSessionRepo) DeactivateOthers(ctx context.Context, userID uuid.UUID, keepFP string) (int64, error) {
	if m.deactivateOthersFn != nil {
		return m.deactivateOthersFn(ctx, userID, keepFP)
	}
	return 0, nil
}

func (m *fakeSessionRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Session, error) {
	if m.listByUserFn != nil {
		return m.listByUserFn(ctx, userID)
	}
	return nil, nil
}

type fakeMFARepo struct {
	upsertFn            func(ctx context.Context, method models.MFAMethod) (models.MFAMethod, error)
	findByUserAndTypeFn func(ctx context.Context, userID uuid.UUID, mfaType models.MFAType) (models.MFAMethod, error)
	markVerifiedFn      func(ctx context.Context, id uuid.UUID) error
}

func (m *fakeMFARepo) Upsert(ctx context.Context, method models.MFAMethod) (models.MFAMethod, error) {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, method)
	}
	return method, nil
}

func (m *fakeMFARepo) FindByUserAndType(ctx context.Context, userID uuid.UUID, mfaType models.MFAType) (models.MFAMethod, error) {
	if m.findByUserAndTypeFn != nil {
		return m.findByUserAndTypeFn(ctx, userID, mfaType)
	}
	return models.MFAMethod{}, nil
}

func (m *fakeMFARepo) MarkVerified(ctx context.Context, id uuid.UUID) error {
	if m.markVerifiedFn != nil {
		return m.markVerifiedFn(ctx, id)
	}
	return nil
}

type fakeVaultRepo struct {
	createFn      func(ctx context.Context, vault models.Vault) (models.Vault, error)
	findByIDFn    func(ctx context.Context, id uuid.UUID) (models.Vault, error)
	listByOwnerFn func(ctx context.Context, ownerID uuid.UUID) ([]models.Vault, error)
	updateFn      func(ctx context.Context, id uuid.UUID, update models.VaultUpdate) (models.Vault, error)
	deleteFn      func(ctx context.Context, id uuid.UUID) error
}

func (m *fakeVaultRepo) Create(ctx context.Context, vault models.Vault) (models.Vault, error) {
	if m.createFn != nil {
		return m.createFn(ctx, vault)
	}
	if vault.ID == uuid.Nil {
		vault.ID = uuid.New()
	}
	return vault, nil
}

func (m *fakeVaultRepo) FindByID(ctx context.Context, id uuid.UUID) (models.Vault, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return models.Vault{ID: id}, nil
}

func (m *fakeVaultRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Vault, error) {
	if m.listByOwnerFn != nil {
		return m.listByOwnerFn(ctx, ownerID)
	}
	return nil, nil
}

func (m *fakeVaultRepo) Update(ctx context.Context, id uuid.UUID, update models.VaultUpdate) (models.Vault, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, update)
	}
	return models.Vault{ID: id}, nil
}

func (m *fakeVaultRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

type fakeFolderRepo struct {
	createFn      func(ctx context.Context, folder models.Folder) (models.Folder, error)
	findByIDFn    func(ctx context.Context, id uuid.UUID) (models.Folder, error)
	listByVaultFn func(ctx context.Context, vaultID uuid.UUID) ([]models.Folder, error)
	setParentFn   func(ctx context.Context, id uuid.UUID, parentID *uuid.UUID) error
}

func (m *fakeFolderRepo) Create(ctx context.Context, folder models.Folder) (models.Folder, error) {
	if m.createFn != nil {
		return m.createFn(ctx, folder)
	}
	if folder.ID == uuid.Nil {
		folder.ID = uuid.New()
	}
	return folder, nil
}

func (m *fakeFolderRepo) FindByID(ctx context.Context, id uuid.UUID) (models.Folder, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return models.Folder{ID: id}, nil
}

func (m *fakeFolderRepo) ListByVault(ctx context.Context, vaultID uuid.UUID) ([]models.Folder, error) {
	if m.listByVaultFn != nil {
		return m.listByVaultFn(ctx, vaultID)
	}
	return nil, nil
}

func (m *fakeFolderRepo) SetParent(ctx context.Context, id uuid.UUID, parentID *uuid.UUID) error {
	if m.setParentFn != nil {
		return m.setParentFn(ctx, id, parentID)
	}
	return nil
}

type fakeSecretRepo struct {
	createFn             func(ctx context.Context, secret models.Secret, createdBy uuid.UUID) (models.Secret, error)
	findByIDFn           func(ctx context.Context, id uuid.UUID) (models.Secret, error)
	listFn               func(ctx context.Context, filter models.SecretFilter) ([]models.Secret, error)
	updateFn             func(ctx context.Context, id uuid.UUID, update models.SecretUpdate, updatedBy uuid.UUID) (models.Secret, error)
	touchAccessFn        func(ctx context.Context, id uuid.UUID) error
	setArchivedFn        func(ctx context.Context, id uuid.UUID, archived bool) error
	softDeleteFn         func(ctx context.Context, id uuid.UUID, at time.Time) error
	restoreFn            func(ctx context.Context, id uuid.UUID) error
	deleteFn             func(ctx context.Context, id uuid.UUID) error
	moveFn               func(ctx context.Context, id, vaultID uuid.UUID, itemKeyWrapped string) error
	versionsFn           func(ctx context.Context, secretID uuid.UUID) ([]models.SecretVersion, error)
	purgeDeletedBeforeFn func(ctx context.Context, cutoff time.Time) (int64, error)
}

func (m *fakeSecretRepo) Create(ctx context.Context, secret models.Secret, createdBy uuid.UUID) (models.Secret, error) {
	if m.createFn != nil {
		return m.createFn(ctx, secret, createdBy)
	}
	if secret.ID == uuid.Nil {
		secret.ID = uuid.New()
	}
	return secret, nil
}

func (m *fakeSecretRepo) FindByID(ctx context.Context, id uuid.UUID) (models.Secret, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return models.Secret{ID: id}, nil
}

func (m *fakeSecretRepo) List(ctx context.Context, filter models.SecretFilter) ([]models.Secret, error) {
	if m.listFn != nil {
		return m.listFn(ctx, filter)
	}
	return nil, nil
}

func (m *fakeSecretRepo) Update(ctx context.Context, id uuid.UUID, update models.SecretUpdate, updatedBy uuid.UUID) (models.Secret, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, update, updatedBy)
	}
	return models.Secret{ID: id}, nil
}

func (m *fakeSecretRepo) TouchAccess(ctx context.Context, id uuid.UUID) error {
	if m.touchAccessFn != nil {
		return m.touchAccessFn(ctx, id)
	}
	return nil
}

func (m *fakeSecretRepo) SetArchived(ctx context.Context, id uuid.UUID, archived bool) error {
	if m.setArchivedFn != nil {
		return m.setArchivedFn(ctx, id, archived)
	}
	return nil
}

func (m *fakeSecretRepo) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	if m.softDeleteFn != nil {
		return m.softDeleteFn(ctx, id, at)
	}
	return nil
}

func (m *fakeSecretRepo) Restore(ctx context.Context, id uuid.UUID) error {
	if m.restoreFn != nil {
		return m.restoreFn(ctx, id)
	}
	return nil
}

func (m *fakeSecretRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *fakeSecretRepo) Move(ctx context.Context, id, vaultID uuid.UUID, itemKeyWrapped string) error {
	if m.moveFn != nil {
		return m.moveFn(ctx, id, vaultID, itemKeyWrapped)
	}
	return nil
}

func (m *fakeSecretRepo) Versions(ctx context.Context, secretID uuid.UUID) ([]models.SecretVersion, error) {
	if m.versionsFn != nil {
		return m.versionsFn(ctx, secretID)
	}
	return nil, nil
}

func (m *fakeSecretRepo) PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if m.purgeDeletedBeforeFn != nil {
		return m.purgeDeletedBeforeFn(ctx, cutoff)
	}
	return 0, nil
}

type fakeShareRepo struct {
	createFn          func(ctx context.Context, grant models.ShareGrant) (models.ShareGrant, error)
	findByIDFn        func(ctx context.Context, id uuid.UUID) (models.ShareGrant, error)
	findByTokenFn     func(ctx context.Context, token string) (models.SharedSecret, error)
	consumeViewFn     func(ctx context.Context, id uuid.UUID, now time.Time) error
	updateFn          func(ctx context.Context, id uuid.UUID, update models.ShareGrantUpdate) (models.ShareGrant, error)
	deleteFn          func(ctx context.Context, id uuid.UUID) error
	listForUserFn     func(ctx context.Context, userID uuid.UUID, now time.Time) ([]models.SharedSecret, error)
	historyBySecretFn func(ctx context.Context, secretID uuid.UUID) ([]models.ShareGrant, error)
}

func (m *fakeShareRepo) Create(ctx context.Context, grant models.ShareGrant) (models.ShareGrant, error) {
	if m.createFn != nil {
		return m.createFn(ctx, grant)
	}
	if grant.ID == uuid.Nil {
		grant.ID = uuid.New()
	}
	return grant, nil
}

func (m *fakeShareRepo) FindByID(ctx context.Context, id uuid.UUID) (models.ShareGrant, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return models.ShareGrant{ID: id}, nil
}

func (m *fakeShareRepo) FindByToken(ctx context.Context, token string) (models.SharedSecret, error) {
	if m.findByTokenFn != nil {
		return m.findByTokenFn(ctx, token)
	}
	return models.SharedSecret{}, nil
}

func (m *fakeShareRepo) ConsumeView(ctx context.Context, id uuid.UUID, now time.Time) error {
	if m.consumeViewFn != nil {
		return m.consumeViewFn(ctx, id, now)
	}
	return nil
}

func (m *fakeShareRepo) Update(ctx context.Context, id uuid.UUID, update models.ShareGrantUpdate) (models.ShareGrant, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, update)
	}
	return models.ShareGrant{ID: id}, nil
}

func (m *fakeShareRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *fakeShareRepo) ListForUser(ctx context.Context, userID uuid.UUID, now time.Time) ([]models.SharedSecret, error) {
	if m.listForUserFn != nil {
		return m.listForUserFn(ctx, userID, now)
	}
	return nil, nil
}

func (m *fakeShareRepo) HistoryBySecret(ctx context.Context, secretID uuid.UUID) ([]models.ShareGrant, error) {
	if m.historyBySecretFn != nil {
		return m.historyBySecretFn(ctx, secretID)
	}
	return nil, nil
}

// recordingAudit collects records synchronously for assertions.
type recordingAudit struct {
	mu      sync.Mutex
	records []models.AuditRecord
}

func (a *recordingAudit) Record(_ context.Context, record models.AuditRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, record)
}

func (a *recordingAudit) Query(context.Context, models.AuditFilter) ([]models.AuditRecord, error) {
	return nil, nil
}

func (a *recordingAudit) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.records))
	for _, r := range a.records {
		out = append(out, r.Action)
	}
	return out
}

// funcAuthorizer delegates to fn; a nil fn allows everything.
type funcAuthorizer struct {
	fn func(ctx context.Context, userID, vaultID uuid.UUID) error
}

func (a *funcAuthorizer) CanAccessVault(ctx context.Context, userID, vaultID uuid.UUID) error {
	if a.fn != nil {
		return a.fn(ctx, userID, vaultID)
	}
	return nil
}
