package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"github.com/vaultkeeper/vaultkeeper/internal/logger"
	"github.com/vaultkeeper/vaultkeeper/models"
)

func newTestSecretRepo(t *testing.T) (*secretRepository, sqlmock.Sqlmock, *sql.DB) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	l := logger.Nop()
	repo := &secretRepository{
		db:     &DB{DB: db, logger: l},
		logger: l,
	}
	return repo, mock, db
}

func secretRowColumns() []string {
	return []string{
		"id", "vault_id", "folder_id", "type", "name_ciphertext", "data_ciphertext", "item_key_wrapped",
		"metadata_ciphertext", "favorite", "is_archived", "is_deleted", "deleted_at",
		"access_count", "last_accessed_at", "created_at", "updated_at",
	}
}

func secretRow(s models.Secret, now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(secretRowColumns()).AddRow(
		s.ID, s.VaultID, s.FolderID, s.Type, s.NameCiphertext, s.DataCiphertext, s.ItemKeyWrapped,
		s.MetadataCiphertext, s.Favorite, s.IsArchived, s.IsDeleted, s.DeletedAt,
		s.AccessCount, s.LastAccessedAt, now, now,
	)
}

func TestSecretCreate_WritesInitialVersion(t *testing.T) {
	repo, mock, db := newTestSecretRepo(t)
	defer db.Close()

	secret := models.Secret{
		ID:             uuid.New(),
		VaultID:        uuid.New(),
		Type:           models.SecretTypeLogin,
		NameCiphertext: "enc:name",
		DataCiphertext: "enc:data",
		ItemKeyWrapped: "enc:itemkey",
	}
	createdBy := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO secrets").
		WillReturnRows(secretRow(secret, time.Now()))
	mock.ExpectQuery("INSERT INTO secret_versions").
		WillReturnRows(sqlmock.NewRows([]string{"version_number"}).AddRow(1))
	mock.ExpectCommit()

	created, err := repo.Create(context.Background(), secret, createdBy)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.DataCiphertext != secret.DataCiphertext {
		t.Errorf("expected data ciphertext %s, got %s", secret.DataCiphertext, created.DataCiphertext)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestSecretUpdate_ContentChangeAppendsVersion(t *testing.T) {
	repo, mock, db := newTestSecretRepo(t)
	defer db.Close()

	id := uuid.New()
	newData := "enc:data-v2"
	updated := models.Secret{
		ID:             id,
		VaultID:        uuid.New(),
		Type:           models.SecretTypeLogin,
		NameCiphertext: "enc:name",
		DataCiphertext: newData,
		ItemKeyWrapped: "enc:itemkey",
	}

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE secrets").
		WillReturnRows(secretRow(updated, time.Now()))
	mock.ExpectQuery("INSERT INTO secret_versions").
		WillReturnRows(sqlmock.NewRows([]string{"version_number"}).AddRow(2))
	mock.ExpectCommit()

	got, err := repo.Update(context.Background(), id, models.SecretUpdate{DataCiphertext: &newData}, uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.DataCiphertext != newData {
		t.Errorf("expected data ciphertext %s, got %s", newData, got.DataCiphertext)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

// Metadata-only edits must not grow the version history.
func TestSecretUpdate_MetadataOnlySkipsVersion(t *testing.T) {
	repo, mock, db := newTestSecretRepo(t)
	defer db.Close()

	id := uuid.New()
	favorite := true
	updated := models.Secret{
		ID:             id,
		VaultID:        uuid.New(),
		Type:           models.SecretTypeLogin,
		NameCiphertext: "enc:name",
		DataCiphertext: "enc:data",
		ItemKeyWrapped: "enc:itemkey",
		Favorite:       true,
	}

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE secrets").
		WillReturnRows(secretRow(updated, time.Now()))
	mock.ExpectCommit()

	got, err := repo.Update(context.Background(), id, models.SecretUpdate{Favorite: &favorite}, uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Favorite {
		t.Error("expected favorite flag to be set")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestSecretUpdate_DeletedSecretNotFound(t *testing.T) {
	repo, mock, db := newTestSecretRepo(t)
	defer db.Close()

	name := "enc:name"

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE secrets").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.Update(context.Background(), uuid.New(), models.SecretUpdate{NameCiphertext: &name}, uuid.New())
	if !errors.Is(err, ErrSecretNotFound) {
		t.Fatalf("expected ErrSecretNotFound, got %v", err)
	}
}

func TestSecretSoftDelete_AlreadyDeleted(t *testing.T) {
	repo, mock, db := newTestSecretRepo(t)
	defer db.Close()

	id := uuid.New()

	mock.ExpectExec("UPDATE secrets").
		WithArgs(id, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SoftDelete(context.Background(), id, time.Now())
	if !errors.Is(err, ErrSecretNotFound) {
		t.Fatalf("expected ErrSecretNotFound, got %v", err)
	}
}

func TestSecretPurgeDeletedBefore(t *testing.T) {
	repo, mock, db := newTestSecretRepo(t)
	defer db.Close()

	cutoff := time.Now().Add(-30 * 24 * time.Hour)

	mock.ExpectExec("DELETE FROM secrets").
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 4))

	purged, err := repo.PurgeDeletedBefore(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if purged != 4 {
		t.Errorf("expected 4 purged secrets, got %d", purged)
	}
}

func TestSecretList_FiltersTrash(t *testing.T) {
	repo, mock, db := newTestSecretRepo(t)
	defer db.Close()

	vaultID := uuid.New()
	live := models.Secret{
		ID:             uuid.New(),
		VaultID:        vaultID,
		Type:           models.SecretTypeSecureNote,
		NameCiphertext: "enc:name",
		DataCiphertext: "enc:data",
		ItemKeyWrapped: "enc:itemkey",
	}

	mock.ExpectQuery("SELECT (.+) FROM secrets").
		WillReturnRows(secretRow(live, time.Now()))

	secrets, err := repo.List(context.Background(), models.SecretFilter{
		VaultID: &vaultID,
		State:   models.SecretStateActive,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(secrets) != 1 {
		t.Fatalf("expected 1 secret, got %d", len(secrets))
	}
	if secrets[0].IsDeleted || secrets[0].IsArchived {
		t.Error("active listing returned a non-active secret")
	}
}
