package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/vaultkeeper/vaultkeeper/internal/logger"
	"github.com/vaultkeeper/vaultkeeper/models"
)

// mfaRepository is the PostgreSQL-backed implementation of [MFARepository].
type mfaRepository struct {
	logger *logger.Logger
	db     *DB
}

// NewMFARepository constructs an [MFARepository] backed by the provided
// database connection and logger.
func NewMFARepository(db *DB, logger *logger.Logger) MFARepository {
	logger.Debug().Msg("creating mfa repository")
	return &mfaRepository{
		db:     db,
		logger: logger,
	}
}

func scanMFAMethod(s rowScanner, m *models.MFAMethod) error {
	return s.Scan(&m.ID, &m.UserID, &m.Type, &m.Secret, &m.Verified, &m.CreatedAt)
}

// Upsert stores (or re-provisions) the user's enrollment for one method.
// Re-provisioning replaces the secret and drops the verified flag, so an
// abandoned setup can always be restarted.
func (r *mfaRepository) Upsert(ctx context.Context, method models.MFAMethod) (models.MFAMethod, error) {
	log := logger.FromContext(ctx)

	if method.ID == uuid.Nil {
		method.ID = uuid.New()
	}

	row := r.db.QueryRowContext(ctx, upsertMFAMethod, method.ID, method.UserID, method.Type, method.Secret)

	var stored models.MFAMethod
	if err := scanMFAMethod(row, &stored); err != nil {
		log.Err(err).Str("func", "*mfaRepository.Upsert").Msg("error: upserting mfa method")
		return models.MFAMethod{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return stored, nil
}

// FindByUserAndType retrieves the user's enrollment for one method.
func (r *mfaRepository) FindByUserAndType(ctx context.Context, userID uuid.UUID, mfaType models.MFAType) (models.MFAMethod, error) {
	log := logger.FromContext(ctx)

	var method models.MFAMethod
	if err := scanMFAMethod(r.db.QueryRowContext(ctx, findMFAMethodByUserAndType, userID, mfaType), &method); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.MFAMethod{}, ErrMFAMethodNotFound
		}
		log.Err(err).Str("func", "*mfaRepository.FindByUserAndType").Msg("error: finding mfa method")
		return models.MFAMethod{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return method, nil
}

// MarkVerified flags the enrollment as confirmed by a successful code check.
func (r *mfaRepository) MarkVerified(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContext(ctx)

	res, err := r.db.ExecContext(ctx, markMFAMethodVerified, id)
	if err != nil {
		log.Err(err).Str("func", "*mfaRepository.MarkVerified").Msg("error: marking mfa method verified")
		return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrMFAMethodNotFound
	}

	return nil
}
