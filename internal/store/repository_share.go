package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"

	"github.com/vaultkeeper/vaultkeeper/internal/logger"
	"github.com/vaultkeeper/vaultkeeper/models"
)

// shareUpdateBuilder assembles the dynamic UPDATE for the sharer-editable
// fields of a grant.
func shareUpdateBuilder(id uuid.UUID, update models.ShareGrantUpdate) sq.UpdateBuilder {
	builder := sq.Update("share_grants").
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + shareColumns).
		PlaceholderFormat(sq.Dollar)

	if update.Permission != nil {
		builder = builder.Set("permission", *update.Permission)
	}
	if update.ExpiresAt != nil {
		builder = builder.Set("expires_at", *update.ExpiresAt)
	}

	return builder
}

// shareRepository is the PostgreSQL-backed implementation of
// [ShareRepository].
//
// The tagged Recipient variant flattens into recipient_kind plus a nullable
// recipient_id column; link grants additionally hold the capability token in
// a nullable unique column, stored as NULL for user and team grants.
type shareRepository struct {
	logger *logger.Logger
	db     *DB
}

// NewShareRepository constructs a [ShareRepository] backed by the provided
// database connection and logger.
func NewShareRepository(db *DB, logger *logger.Logger) ShareRepository {
	logger.Debug().Msg("creating share repository")
	return &shareRepository{
		db:     db,
		logger: logger,
	}
}

func scanShareGrant(s rowScanner, g *models.ShareGrant) error {
	var (
		recipientID uuid.NullUUID
		shareToken  sql.NullString
	)
	if err := s.Scan(
		&g.ID, &g.SecretID, &g.SharedBy, &g.Recipient.Kind, &recipientID,
		&g.ItemKeyWrapped, &g.Permission, &shareToken, &g.MaxViews,
		&g.ViewCount, &g.ExpiresAt, &g.CreatedAt,
	); err != nil {
		return err
	}
	if recipientID.Valid {
		g.Recipient.ID = recipientID.UUID
	}
	g.ShareToken = shareToken.String

	return nil
}

func scanSharedSecret(s rowScanner, shared *models.SharedSecret) error {
	var (
		recipientID uuid.NullUUID
		shareToken  sql.NullString
	)
	g, sec := &shared.Grant, &shared.Secret
	if err := s.Scan(
		&g.ID, &g.SecretID, &g.SharedBy, &g.Recipient.Kind, &recipientID,
		&g.ItemKeyWrapped, &g.Permission, &shareToken, &g.MaxViews,
		&g.ViewCount, &g.ExpiresAt, &g.CreatedAt,
		&sec.ID, &sec.VaultID, &sec.FolderID, &sec.Type, &sec.NameCiphertext,
		&sec.DataCiphertext, &sec.ItemKeyWrapped, &sec.MetadataCiphertext,
		&sec.Favorite, &sec.IsArchived, &sec.IsDeleted, &sec.DeletedAt,
		&sec.AccessCount, &sec.LastAccessedAt, &sec.CreatedAt, &sec.UpdatedAt,
	); err != nil {
		return err
	}
	if recipientID.Valid {
		g.Recipient.ID = recipientID.UUID
	}
	g.ShareToken = shareToken.String

	return nil
}

// Create persists a new grant and returns the stored row.
func (r *shareRepository) Create(ctx context.Context, grant models.ShareGrant) (models.ShareGrant, error) {
	log := logger.FromContext(ctx)

	if grant.ID == uuid.Nil {
		grant.ID = uuid.New()
	}

	var recipientID *uuid.UUID
	if grant.Recipient.ID != uuid.Nil {
		recipientID = &grant.Recipient.ID
	}
	var shareToken *string
	if grant.ShareToken != "" {
		shareToken = &grant.ShareToken
	}

	row := r.db.QueryRowContext(ctx, createShareGrant,
		grant.ID, grant.SecretID, grant.SharedBy, grant.Recipient.Kind, recipientID,
		grant.ItemKeyWrapped, grant.Permission, shareToken, grant.MaxViews, grant.ExpiresAt,
	)

	var created models.ShareGrant
	if err := scanShareGrant(row, &created); err != nil {
		log.Err(err).Str("func", "*shareRepository.Create").Msg("error: creating share grant")

		switch postgresError(err) {
		case pgerrcode.ForeignKeyViolation:
			return models.ShareGrant{}, ErrSecretNotFound
		default:
			return models.ShareGrant{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
		}
	}

	return created, nil
}

// FindByID retrieves one grant.
func (r *shareRepository) FindByID(ctx context.Context, id uuid.UUID) (models.ShareGrant, error) {
	log := logger.FromContext(ctx)

	var grant models.ShareGrant
	if err := scanShareGrant(r.db.QueryRowContext(ctx, findShareGrantByID, id), &grant); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ShareGrant{}, ErrShareNotFound
		}
		log.Err(err).Str("func", "*shareRepository.FindByID").Msg("error: finding share grant")
		return models.ShareGrant{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return grant, nil
}

// FindByToken resolves a link token to its grant and secret. The secret is
// returned even when soft-deleted; callers decide whether the trash is
// redeemable.
func (r *shareRepository) FindByToken(ctx context.Context, token string) (models.SharedSecret, error) {
	log := logger.FromContext(ctx)

	var shared models.SharedSecret
	if err := scanSharedSecret(r.db.QueryRowContext(ctx, findShareGrantByToken, token), &shared); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.SharedSecret{}, ErrShareNotFound
		}
		log.Err(err).Str("func", "*shareRepository.FindByToken").Msg("error: finding share grant by token")
		return models.SharedSecret{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return shared, nil
}

// ConsumeView spends one view of the grant. The view cap and expiry live in
// the WHERE clause of a single UPDATE, so when several redemptions race for
// the last remaining view, the database serializes the increments and all
// but the winners match zero rows and get ErrShareConsumed.
func (r *shareRepository) ConsumeView(ctx context.Context, id uuid.UUID, now time.Time) error {
	log := logger.FromContext(ctx)

	res, err := r.db.ExecContext(ctx, consumeShareView, id, now)
	if err != nil {
		log.Err(err).Str("func", "*shareRepository.ConsumeView").Msg("error: consuming share view")
		return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrShareConsumed
	}

	return nil
}

// Update applies the non-nil fields of update and returns the fresh row.
func (r *shareRepository) Update(ctx context.Context, id uuid.UUID, update models.ShareGrantUpdate) (models.ShareGrant, error) {
	log := logger.FromContext(ctx)

	builder := shareUpdateBuilder(id, update)

	query, args, err := builder.ToSql()
	if err != nil {
		log.Err(err).Str("func", "*shareRepository.Update").Msg("error: building update query")
		return models.ShareGrant{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	var grant models.ShareGrant
	if err := scanShareGrant(r.db.QueryRowContext(ctx, query, args...), &grant); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ShareGrant{}, ErrShareNotFound
		}
		log.Err(err).Str("func", "*shareRepository.Update").Msg("error: updating share grant")
		return models.ShareGrant{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return grant, nil
}

// Delete revokes the grant permanently.
func (r *shareRepository) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContext(ctx)

	res, err := r.db.ExecContext(ctx, deleteShareGrant, id)
	if err != nil {
		log.Err(err).Str("func", "*shareRepository.Delete").Msg("error: deleting share grant")
		return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrShareNotFound
	}

	return nil
}

// ListForUser returns live grants addressed to the user together with their
// undeleted secrets, newest first.
func (r *shareRepository) ListForUser(ctx context.Context, userID uuid.UUID, now time.Time) ([]models.SharedSecret, error) {
	log := logger.FromContext(ctx)

	rows, err := r.db.QueryContext(ctx, listSharesForUser, userID, now)
	if err != nil {
		log.Err(err).Str("func", "*shareRepository.ListForUser").Msg("error: listing shares for user")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	var shares []models.SharedSecret
	for rows.Next() {
		var shared models.SharedSecret
		if err := scanSharedSecret(rows, &shared); err != nil {
			log.Err(err).Str("func", "*shareRepository.ListForUser").Msg("error: scanning shared secret row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, err)
		}
		shares = append(shares, shared)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}

	return shares, nil
}

// HistoryBySecret returns every grant ever issued for the secret, newest
// first, including expired and fully consumed ones.
func (r *shareRepository) HistoryBySecret(ctx context.Context, secretID uuid.UUID) ([]models.ShareGrant, error) {
	log := logger.FromContext(ctx)

	rows, err := r.db.QueryContext(ctx, listShareHistoryBySecret, secretID)
	if err != nil {
		log.Err(err).Str("func", "*shareRepository.HistoryBySecret").Msg("error: listing share history")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	var grants []models.ShareGrant
	for rows.Next() {
		var grant models.ShareGrant
		if err := scanShareGrant(rows, &grant); err != nil {
			log.Err(err).Str("func", "*shareRepository.HistoryBySecret").Msg("error: scanning share grant row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, err)
		}
		grants = append(grants, grant)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}

	return grants, nil
}
