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

func newTestSessionRepo(t *testing.T) (*sessionRepository, sqlmock.Sqlmock, *sql.DB) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	l := logger.Nop()
	repo := &sessionRepository{
		db:     &DB{DB: db, logger: l},
		logger: l,
	}
	return repo, mock, db
}

func sessionRow(s models.Session) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "user_id", "token_fingerprint", "device_info", "ip_address", "is_active", "created_at", "expires_at",
	}).AddRow(s.ID, s.UserID, s.TokenFingerprint, s.DeviceInfo, s.IPAddress, s.IsActive, s.CreatedAt, s.ExpiresAt)
}

func TestSessionCreate_Success(t *testing.T) {
	repo, mock, db := newTestSessionRepo(t)
	defer db.Close()

	session := models.Session{
		ID:               uuid.New(),
		UserID:           uuid.New(),
		TokenFingerprint: "fp-abc",
		DeviceInfo:       "firefox/linux",
		IsActive:         true,
		CreatedAt:        time.Now(),
		ExpiresAt:        time.Now().Add(7 * 24 * time.Hour),
	}

	mock.ExpectQuery("INSERT INTO sessions").
		WillReturnRows(sessionRow(session))

	created, err := repo.Create(context.Background(), session)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.TokenFingerprint != session.TokenFingerprint {
		t.Errorf("expected fingerprint %s, got %s", session.TokenFingerprint, created.TokenFingerprint)
	}
	if !created.IsActive {
		t.Error("expected fresh session to be active")
	}
}

func TestSessionRotate_Success(t *testing.T) {
	repo, mock, db := newTestSessionRepo(t)
	defer db.Close()

	expiresAt := time.Now().Add(7 * 24 * time.Hour)
	rotated := models.Session{
		ID:               uuid.New(),
		UserID:           uuid.New(),
		TokenFingerprint: "fp-new",
		IsActive:         true,
		CreatedAt:        time.Now(),
		ExpiresAt:        expiresAt,
	}

	mock.ExpectQuery("UPDATE sessions").
		WithArgs("fp-old", "fp-new", expiresAt).
		WillReturnRows(sessionRow(rotated))

	session, err := repo.Rotate(context.Background(), "fp-old", "fp-new", expiresAt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.TokenFingerprint != "fp-new" {
		t.Errorf("expected rotated fingerprint fp-new, got %s", session.TokenFingerprint)
	}
}

// A rotation that matches no active row means the presented token was
// already rotated away by a concurrent refresh (or revoked); the caller
// must observe ErrSessionNotFound.
func TestSessionRotate_LoserGetsNotFound(t *testing.T) {
	repo, mock, db := newTestSessionRepo(t)
	defer db.Close()

	mock.ExpectQuery("UPDATE sessions").
		WithArgs("fp-old", "fp-new", sqlmock.AnyArg()).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Rotate(context.Background(), "fp-old", "fp-new", time.Now().Add(time.Hour))
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

// A rotation that matches a row past its expires_at retires it in place:
// the statement returns the row with is_active already flipped off, and the
// caller sees the same dead-token error as a rotation loser.
func TestSessionRotate_ExpiredSessionRetiredNotRotated(t *testing.T) {
	repo, mock, db := newTestSessionRepo(t)
	defer db.Close()

	retired := models.Session{
		ID:               uuid.New(),
		UserID:           uuid.New(),
		TokenFingerprint: "fp-old",
		IsActive:         false,
		CreatedAt:        time.Now().Add(-8 * 24 * time.Hour),
		ExpiresAt:        time.Now().Add(-time.Hour),
	}

	mock.ExpectQuery("UPDATE sessions").
		WithArgs("fp-old", "fp-new", sqlmock.AnyArg()).
		WillReturnRows(sessionRow(retired))

	_, err := repo.Rotate(context.Background(), "fp-old", "fp-new", time.Now().Add(7*24*time.Hour))
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound for an expired session, got %v", err)
	}
}

func TestSessionDeactivateOthers(t *testing.T) {
	repo, mock, db := newTestSessionRepo(t)
	defer db.Close()

	userID := uuid.New()

	mock.ExpectExec("UPDATE sessions").
		WithArgs(userID, "fp-keep").
		WillReturnResult(sqlmock.NewResult(0, 3))

	revoked, err := repo.DeactivateOthers(context.Background(), userID, "fp-keep")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if revoked != 3 {
		t.Errorf("expected 3 revoked sessions, got %d", revoked)
	}
}

func TestSessionListByUser(t *testing.T) {
	repo, mock, db := newTestSessionRepo(t)
	defer db.Close()

	userID := uuid.New()
	now := time.Now()

	rows := sqlmock.NewRows([]string{
		"id", "user_id", "token_fingerprint", "device_info", "ip_address", "is_active", "created_at", "expires_at",
	}).
		AddRow(uuid.New(), userID, "fp-1", "firefox/linux", "10.0.0.1", true, now, now.Add(time.Hour)).
		AddRow(uuid.New(), userID, "fp-2", "safari/mac", "10.0.0.2", false, now.Add(-time.Hour), now)

	mock.ExpectQuery("SELECT (.+) FROM sessions").
		WithArgs(userID).
		WillReturnRows(rows)

	sessions, err := repo.ListByUser(context.Background(), userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	if sessions[1].IsActive {
		t.Error("expected second session to be inactive")
	}
}
