package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"

	"github.com/vaultkeeper/vaultkeeper/internal/logger"
	"github.com/vaultkeeper/vaultkeeper/models"
)

// sessionRepository is the PostgreSQL-backed implementation of
// [SessionRepository]. Sessions are only ever updated, never deleted, so the
// table doubles as the device history for each account.
type sessionRepository struct {
	logger *logger.Logger
	db     *DB
}

// NewSessionRepository constructs a [SessionRepository] backed by the
// provided database connection and logger.
func NewSessionRepository(db *DB, logger *logger.Logger) SessionRepository {
	logger.Debug().Msg("creating session repository")
	return &sessionRepository{
		db:     db,
		logger: logger,
	}
}

func scanSession(s rowScanner, sess *models.Session) error {
	return s.Scan(
		&sess.ID, &sess.UserID, &sess.TokenFingerprint, &sess.DeviceInfo,
		&sess.IPAddress, &sess.IsActive, &sess.CreatedAt, &sess.ExpiresAt,
	)
}

// Create records a freshly issued refresh token in the ledger.
//
// A unique_violation on token_fingerprint means two tokens collided on
// their digest, which in practice only happens when the same token is
// inserted twice.
func (r *sessionRepository) Create(ctx context.Context, session models.Session) (models.Session, error) {
	log := logger.FromContext(ctx)

	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}

	row := r.db.QueryRowContext(ctx, createSession,
		session.ID, session.UserID, session.TokenFingerprint,
		session.DeviceInfo, session.IPAddress, session.ExpiresAt,
	)

	var created models.Session
	if err := scanSession(row, &created); err != nil {
		log.Err(err).Str("func", "*sessionRepository.Create").Msg("error: creating session")

		switch postgresError(err) {
		case pgerrcode.UniqueViolation:
			return models.Session{}, fmt.Errorf("%w: duplicate token fingerprint", ErrExecutingQuery)
		default:
			return models.Session{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
		}
	}

	return created, nil
}

// FindByID retrieves one session row regardless of its active flag.
func (r *sessionRepository) FindByID(ctx context.Context, id uuid.UUID) (models.Session, error) {
	log := logger.FromContext(ctx)

	var session models.Session
	if err := scanSession(r.db.QueryRowContext(ctx, findSessionByID, id), &session); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Session{}, ErrSessionNotFound
		}
		log.Err(err).Str("func", "*sessionRepository.FindByID").Msg("error: finding session by id")
		return models.Session{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return session, nil
}

// FindActiveByFingerprint resolves a presented refresh token's digest to its
// active session, if any.
func (r *sessionRepository) FindActiveByFingerprint(ctx context.Context, fingerprint string) (models.Session, error) {
	log := logger.FromContext(ctx)

	var session models.Session
	if err := scanSession(r.db.QueryRowContext(ctx, findActiveSessionByFingerprint, fingerprint), &session); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Session{}, ErrSessionNotFound
		}
		log.Err(err).Str("func", "*sessionRepository.FindActiveByFingerprint").Msg("error: finding session by fingerprint")
		return models.Session{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return session, nil
}

// Rotate performs the in-place fingerprint swap that retires the old refresh
// token. The WHERE clause targets the old fingerprint on an active row, so
// of two concurrent rotations only the first matches; the second observes
// ErrSessionNotFound and must treat the presented token as dead. A matched
// row whose expires_at has already passed is retired by the same statement
// instead of rotated, and the caller likewise sees ErrSessionNotFound.
func (r *sessionRepository) Rotate(ctx context.Context, oldFingerprint, newFingerprint string, expiresAt time.Time) (models.Session, error) {
	log := logger.FromContext(ctx)

	var session models.Session
	if err := scanSession(r.db.QueryRowContext(ctx, rotateSession, oldFingerprint, newFingerprint, expiresAt), &session); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Session{}, ErrSessionNotFound
		}
		log.Err(err).Str("func", "*sessionRepository.Rotate").Msg("error: rotating session")
		return models.Session{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	if !session.IsActive {
		return models.Session{}, ErrSessionNotFound
	}

	return session, nil
}

// Deactivate marks one session inactive, keeping the row for history.
func (r *sessionRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContext(ctx)

	res, err := r.db.ExecContext(ctx, deactivateSession, id)
	if err != nil {
		log.Err(err).Str("func", "*sessionRepository.Deactivate").Msg("error: deactivating session")
		return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrSessionNotFound
	}

	return nil
}

// DeactivateAllForUser marks every active session of the user inactive and
// returns how many were retired.
func (r *sessionRepository) DeactivateAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	log := logger.FromContext(ctx)

	res, err := r.db.ExecContext(ctx, deactivateAllUserSessions, userID)
	if err != nil {
		log.Err(err).Str("func", "*sessionRepository.DeactivateAllForUser").Msg("error: deactivating user sessions")
		return 0, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	affected, _ := res.RowsAffected()
	return affected, nil
}

// DeactivateOthers retires every active session of the user except the one
// holding keepFingerprint. Used after a password change so the changing
// device keeps its session while all others die.
func (r *sessionRepository) DeactivateOthers(ctx context.Context, userID uuid.UUID, keepFingerprint string) (int64, error) {
	log := logger.FromContext(ctx)

	res, err := r.db.ExecContext(ctx, deactivateOtherUserSessions, userID, keepFingerprint)
	if err != nil {
		log.Err(err).Str("func", "*sessionRepository.DeactivateOthers").Msg("error: deactivating other sessions")
		return 0, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	affected, _ := res.RowsAffected()
	return affected, nil
}

// ListByUser returns the user's whole session ledger, newest first.
func (r *sessionRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Session, error) {
	log := logger.FromContext(ctx)

	rows, err := r.db.QueryContext(ctx, listSessionsByUser, userID)
	if err != nil {
		log.Err(err).Str("func", "*sessionRepository.ListByUser").Msg("error: listing sessions")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		var session models.Session
		if err := scanSession(rows, &session); err != nil {
			log.Err(err).Str("func", "*sessionRepository.ListByUser").Msg("error: scanning session row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}

	return sessions, nil
}
