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

// rowScanner abstracts *sql.Row and *sql.Rows for shared scan helpers.
type rowScanner interface {
	Scan(dest ...any) error
}

// userRepository is the PostgreSQL-backed implementation of [UserRepository].
//
// All methods obtain a context-scoped logger via [logger.FromContext] for
// structured, request-level tracing of database interactions.
type userRepository struct {
	logger *logger.Logger
	db     *DB
}

// NewUserRepository constructs a [UserRepository] backed by the provided
// database connection and logger.
func NewUserRepository(db *DB, logger *logger.Logger) UserRepository {
	logger.Debug().Msg("creating user repository")
	return &userRepository{
		db:     db,
		logger: logger,
	}
}

func scanUser(s rowScanner, u *models.User) error {
	return s.Scan(
		&u.ID, &u.Email, &u.Name, &u.CredentialHash, &u.WrappedVaultKey, &u.WrappedPrivateKey, &u.PublicKey,
		&u.KDFIterations, &u.KDFMemory, &u.MFAEnabled, &u.Status, &u.FailedAttempts, &u.LockedUntil,
		&u.MFAAttempts, &u.MFAAttemptsResetAt, &u.CreatedAt, &u.UpdatedAt,
	)
}

// Create persists a new account and returns the canonical database
// representation with server-assigned fields.
//
// A unique_violation on the email column maps to [ErrEmailAlreadyExists].
func (r *userRepository) Create(ctx context.Context, user models.User) (models.User, error) {
	log := logger.FromContext(ctx)

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.Status == "" {
		user.Status = models.UserStatusActive
	}

	row := r.db.QueryRowContext(ctx, createUser,
		user.ID, user.Email, user.Name, user.CredentialHash,
		user.WrappedVaultKey, user.WrappedPrivateKey, user.PublicKey,
		user.KDFIterations, user.KDFMemory, user.Status,
	)

	var created models.User
	if err := scanUser(row, &created); err != nil {
		log.Err(err).Str("func", "*userRepository.Create").Msg("error: creating user")

		switch postgresError(err) {
		case pgerrcode.UniqueViolation:
			return models.User{}, ErrEmailAlreadyExists
		default:
			return models.User{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
		}
	}

	return created, nil
}

// FindByEmail retrieves the account registered under email.
func (r *userRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	log := logger.FromContext(ctx)

	var user models.User
	if err := scanUser(r.db.QueryRowContext(ctx, findUserByEmail, email), &user); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		log.Err(err).Str("func", "*userRepository.FindByEmail").Msg("error: finding user by email")
		return models.User{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return user, nil
}

// FindByID retrieves the account with the given ID.
func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	log := logger.FromContext(ctx)

	var user models.User
	if err := scanUser(r.db.QueryRowContext(ctx, findUserByID, id), &user); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		log.Err(err).Str("func", "*userRepository.FindByID").Msg("error: finding user by id")
		return models.User{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return user, nil
}

// RecordFailedLogin increments the failure counter and locks the account
// when the counter reaches maxAttempts, all in one statement.
func (r *userRepository) RecordFailedLogin(ctx context.Context, id uuid.UUID, maxAttempts int, lockedUntil time.Time) (models.User, error) {
	log := logger.FromContext(ctx)

	var user models.User
	if err := scanUser(r.db.QueryRowContext(ctx, recordFailedLogin, id, maxAttempts, lockedUntil), &user); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		log.Err(err).Str("func", "*userRepository.RecordFailedLogin").Msg("error: recording failed login")
		return models.User{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return user, nil
}

// ClearLock lifts an expired lockout and zeroes the failure counter.
func (r *userRepository) ClearLock(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContext(ctx)

	if _, err := r.db.ExecContext(ctx, clearUserLock, id); err != nil {
		log.Err(err).Str("func", "*userRepository.ClearLock").Msg("error: clearing lock")
		return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return nil
}

// ResetFailedAttempts zeroes the failure counter after a successful
// verification.
func (r *userRepository) ResetFailedAttempts(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContext(ctx)

	if _, err := r.db.ExecContext(ctx, resetFailedAttempts, id); err != nil {
		log.Err(err).Str("func", "*userRepository.ResetFailedAttempts").Msg("error: resetting failed attempts")
		return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return nil
}

// RecordMFAAttempt bumps the windowed MFA counter and reports whether the
// attempt is still within maxAttempts.
func (r *userRepository) RecordMFAAttempt(ctx context.Context, id uuid.UUID, maxAttempts int, window time.Duration) (bool, error) {
	log := logger.FromContext(ctx)

	now := time.Now()

	var attempts int
	if err := r.db.QueryRowContext(ctx, recordMFAAttempt, id, now, now.Add(window)).Scan(&attempts); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, ErrUserNotFound
		}
		log.Err(err).Str("func", "*userRepository.RecordMFAAttempt").Msg("error: recording mfa attempt")
		return false, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return attempts <= maxAttempts, nil
}

// SetMFAEnabled toggles the authoritative MFA flag on the account.
func (r *userRepository) SetMFAEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	log := logger.FromContext(ctx)

	if _, err := r.db.ExecContext(ctx, setUserMFAEnabled, id, enabled); err != nil {
		log.Err(err).Str("func", "*userRepository.SetMFAEnabled").Msg("error: setting mfa flag")
		return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return nil
}

// UpdateCredentials replaces the credential hash together with both wrapped
// key blobs in one statement, so a password change can never leave the
// account with a hash that does not match its key material.
func (r *userRepository) UpdateCredentials(ctx context.Context, id uuid.UUID, credentialHash, wrappedVaultKey, wrappedPrivateKey string) error {
	log := logger.FromContext(ctx)

	res, err := r.db.ExecContext(ctx, updateUserCredentials, id, credentialHash, wrappedVaultKey, wrappedPrivateKey)
	if err != nil {
		log.Err(err).Str("func", "*userRepository.UpdateCredentials").Msg("error: updating credentials")
		return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrUserNotFound
	}

	return nil
}

// Delete removes the account; dependent rows follow through cascades.
func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContext(ctx)

	res, err := r.db.ExecContext(ctx, deleteUser, id)
	if err != nil {
		log.Err(err).Str("func", "*userRepository.Delete").Msg("error: deleting user")
		return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrUserNotFound
	}

	return nil
}
