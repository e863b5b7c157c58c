package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vaultkeeper/vaultkeeper/internal/logger"
	"github.com/vaultkeeper/vaultkeeper/models"
)

func newTestUserRepo(t *testing.T) (*userRepository, sqlmock.Sqlmock, *sql.DB) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	l := logger.Nop()
	repo := &userRepository{
		db:     &DB{DB: db, logger: l},
		logger: l,
	}
	return repo, mock, db
}

func pgError(code string) error {
	return &pgconn.PgError{Code: code}
}

func userRowColumns() []string {
	return []string{
		"id", "email", "name", "credential_hash", "wrapped_vault_key", "wrapped_private_key", "public_key",
		"kdf_iterations", "kdf_memory", "mfa_enabled", "status", "failed_attempts", "locked_until",
		"mfa_attempts", "mfa_attempts_reset_at", "created_at", "updated_at",
	}
}

func userRow(u models.User, now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(userRowColumns()).AddRow(
		u.ID, u.Email, u.Name, u.CredentialHash, u.WrappedVaultKey, u.WrappedPrivateKey, u.PublicKey,
		u.KDFIterations, u.KDFMemory, u.MFAEnabled, u.Status, u.FailedAttempts, u.LockedUntil,
		u.MFAAttempts, u.MFAAttemptsResetAt, now, now,
	)
}

func TestUserCreate_Success(t *testing.T) {
	repo, mock, db := newTestUserRepo(t)
	defer db.Close()

	user := models.User{
		ID:             uuid.New(),
		Email:          "john@example.com",
		Name:           "John",
		CredentialHash: "$2a$10$hash",
		Status:         models.UserStatusActive,
	}

	mock.ExpectQuery("INSERT INTO users").
		WillReturnRows(userRow(user, time.Now()))

	created, err := repo.Create(context.Background(), user)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.Email != user.Email {
		t.Errorf("expected email %s, got %s", user.Email, created.Email)
	}
	if created.Status != models.UserStatusActive {
		t.Errorf("expected active status, got %s", created.Status)
	}
}

func TestUserCreate_EmailAlreadyExists(t *testing.T) {
	repo, mock, db := newTestUserRepo(t)
	defer db.Close()

	mock.ExpectQuery("INSERT INTO users").
		WillReturnError(pgError(pgerrcode.UniqueViolation))

	_, err := repo.Create(context.Background(), models.User{Email: "john@example.com"})
	if !errors.Is(err, ErrEmailAlreadyExists) {
		t.Fatalf("expected ErrEmailAlreadyExists, got %v", err)
	}
}

func TestUserFindByEmail_NotFound(t *testing.T) {
	repo, mock, db := newTestUserRepo(t)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM users").
		WithArgs("ghost@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByEmail(context.Background(), "ghost@example.com")
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserRecordFailedLogin_LocksAtThreshold(t *testing.T) {
	repo, mock, db := newTestUserRepo(t)
	defer db.Close()

	id := uuid.New()
	lockedUntil := time.Now().Add(15 * time.Minute)
	locked := models.User{
		ID:             id,
		Email:          "john@example.com",
		Status:         models.UserStatusLocked,
		FailedAttempts: 5,
		LockedUntil:    &lockedUntil,
	}

	mock.ExpectQuery("UPDATE users").
		WithArgs(id, 5, lockedUntil).
		WillReturnRows(userRow(locked, time.Now()))

	user, err := repo.RecordFailedLogin(context.Background(), id, 5, lockedUntil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Status != models.UserStatusLocked {
		t.Errorf("expected locked status, got %s", user.Status)
	}
	if user.FailedAttempts != 5 {
		t.Errorf("expected 5 failed attempts, got %d", user.FailedAttempts)
	}
	if !user.Locked(time.Now()) {
		t.Error("expected user to report locked")
	}
}

func TestUserRecordMFAAttempt(t *testing.T) {
	repo, mock, db := newTestUserRepo(t)
	defer db.Close()

	id := uuid.New()

	mock.ExpectQuery("UPDATE users").
		WillReturnRows(sqlmock.NewRows([]string{"mfa_attempts"}).AddRow(3))

	ok, err := repo.RecordMFAAttempt(context.Background(), id, 5, time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected attempt 3 of 5 to be allowed")
	}

	mock.ExpectQuery("UPDATE users").
		WillReturnRows(sqlmock.NewRows([]string{"mfa_attempts"}).AddRow(6))

	ok, err = repo.RecordMFAAttempt(context.Background(), id, 5, time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected attempt 6 of 5 to be rejected")
	}
}

func TestUserUpdateCredentials_NotFound(t *testing.T) {
	repo, mock, db := newTestUserRepo(t)
	defer db.Close()

	id := uuid.New()

	mock.ExpectExec("UPDATE users").
		WithArgs(id, "newhash", "newvaultkey", "newprivkey").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateCredentials(context.Background(), id, "newhash", "newvaultkey", "newprivkey")
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
