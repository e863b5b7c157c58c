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

// secretSortColumns is the whitelist of columns a listing may sort by.
// Anything else falls back to updated_at.
var secretSortColumns = map[string]string{
	"created_at":       "s.created_at",
	"updated_at":       "s.updated_at",
	"access_count":     "s.access_count",
	"last_accessed_at": "s.last_accessed_at",
	"type":             "s.type",
}

// secretRepository is the PostgreSQL-backed implementation of
// [SecretRepository]. Content-changing writes pair the secrets row with a
// secret_versions snapshot inside one transaction.
type secretRepository struct {
	logger *logger.Logger
	db     *DB
}

// NewSecretRepository constructs a [SecretRepository] backed by the provided
// database connection and logger.
func NewSecretRepository(db *DB, logger *logger.Logger) SecretRepository {
	logger.Debug().Msg("creating secret repository")
	return &secretRepository{
		db:     db,
		logger: logger,
	}
}

func scanSecret(s rowScanner, sec *models.Secret) error {
	return s.Scan(
		&sec.ID, &sec.VaultID, &sec.FolderID, &sec.Type, &sec.NameCiphertext,
		&sec.DataCiphertext, &sec.ItemKeyWrapped, &sec.MetadataCiphertext,
		&sec.Favorite, &sec.IsArchived, &sec.IsDeleted, &sec.DeletedAt,
		&sec.AccessCount, &sec.LastAccessedAt, &sec.CreatedAt, &sec.UpdatedAt,
	)
}

// Create inserts the secret and its version-1 snapshot in one transaction,
// so a secret can never exist without history.
func (r *secretRepository) Create(ctx context.Context, secret models.Secret, createdBy uuid.UUID) (models.Secret, error) {
	log := logger.FromContext(ctx)

	if secret.ID == uuid.Nil {
		secret.ID = uuid.New()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Err(err).Str("func", "*secretRepository.Create").Msg("error: beginning transaction")
		return models.Secret{}, fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, createSecret,
		secret.ID, secret.VaultID, secret.FolderID, secret.Type,
		secret.NameCiphertext, secret.DataCiphertext, secret.ItemKeyWrapped,
		secret.MetadataCiphertext, secret.Favorite,
	)

	var created models.Secret
	if err := scanSecret(row, &created); err != nil {
		log.Err(err).Str("func", "*secretRepository.Create").Msg("error: creating secret")

		switch postgresError(err) {
		case pgerrcode.ForeignKeyViolation:
			return models.Secret{}, ErrVaultNotFound
		default:
			return models.Secret{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
		}
	}

	var version int
	if err := tx.QueryRowContext(ctx, appendSecretVersion,
		uuid.New(), created.ID, created.DataCiphertext, created.ItemKeyWrapped, createdBy,
	).Scan(&version); err != nil {
		log.Err(err).Str("func", "*secretRepository.Create").Msg("error: writing initial version")
		return models.Secret{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	if err := tx.Commit(); err != nil {
		log.Err(err).Str("func", "*secretRepository.Create").Msg("error: committing transaction")
		return models.Secret{}, fmt.Errorf("%w: %w", ErrCommittingTransaction, err)
	}

	return created, nil
}

// FindByID retrieves one secret regardless of its lifecycle state.
func (r *secretRepository) FindByID(ctx context.Context, id uuid.UUID) (models.Secret, error) {
	log := logger.FromContext(ctx)

	var secret models.Secret
	if err := scanSecret(r.db.QueryRowContext(ctx, findSecretByID, id), &secret); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Secret{}, ErrSecretNotFound
		}
		log.Err(err).Str("func", "*secretRepository.FindByID").Msg("error: finding secret")
		return models.Secret{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return secret, nil
}

// List returns secrets matching the filter. The lifecycle state buckets are
// disjoint: active listings exclude archived and deleted rows, archived
// listings return archived-only, deleted listings return the trash.
func (r *secretRepository) List(ctx context.Context, filter models.SecretFilter) ([]models.Secret, error) {
	log := logger.FromContext(ctx)

	builder := sq.Select(
		"s.id", "s.vault_id", "s.folder_id", "s.type", "s.name_ciphertext",
		"s.data_ciphertext", "s.item_key_wrapped", "s.metadata_ciphertext",
		"s.favorite", "s.is_archived", "s.is_deleted", "s.deleted_at",
		"s.access_count", "s.last_accessed_at", "s.created_at", "s.updated_at",
	).
		From("secrets s").
		PlaceholderFormat(sq.Dollar)

	switch filter.State {
	case models.SecretStateArchived:
		builder = builder.Where(sq.Eq{"s.is_archived": true, "s.is_deleted": false})
	case models.SecretStateDeleted:
		builder = builder.Where(sq.Eq{"s.is_deleted": true})
	default:
		builder = builder.Where(sq.Eq{"s.is_archived": false, "s.is_deleted": false})
	}

	if filter.VaultID != nil {
		builder = builder.Where(sq.Eq{"s.vault_id": *filter.VaultID})
	}
	if filter.OwnerID != nil {
		builder = builder.
			Join("vaults v ON v.id = s.vault_id").
			Where(sq.Eq{"v.owner_id": *filter.OwnerID})
	}
	if filter.FolderID != nil {
		builder = builder.Where(sq.Eq{"s.folder_id": *filter.FolderID})
	}
	if filter.Category != nil {
		builder = builder.Where(sq.Eq{"s.type": *filter.Category})
	}

	orderColumn, ok := secretSortColumns[filter.SortBy]
	if !ok {
		orderColumn = "s.updated_at"
	}
	direction := "ASC"
	if filter.SortDesc {
		direction = "DESC"
	}
	builder = builder.OrderBy(orderColumn + " " + direction)

	query, args, err := builder.ToSql()
	if err != nil {
		log.Err(err).Str("func", "*secretRepository.List").Msg("error: building list query")
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).Str("func", "*secretRepository.List").Msg("error: listing secrets")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	var secrets []models.Secret
	for rows.Next() {
		var secret models.Secret
		if err := scanSecret(rows, &secret); err != nil {
			log.Err(err).Str("func", "*secretRepository.List").Msg("error: scanning secret row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, err)
		}
		secrets = append(secrets, secret)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}

	return secrets, nil
}

// Update applies the non-nil fields of update to an undeleted secret. When
// the update carries new content, the fresh snapshot is appended to
// secret_versions in the same transaction with number max(existing)+1;
// metadata-only edits leave the history untouched.
func (r *secretRepository) Update(ctx context.Context, id uuid.UUID, update models.SecretUpdate, updatedBy uuid.UUID) (models.Secret, error) {
	log := logger.FromContext(ctx)

	builder := sq.Update("secrets").
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id, "is_deleted": false}).
		Suffix("RETURNING " + secretColumns).
		PlaceholderFormat(sq.Dollar)

	if update.NameCiphertext != nil {
		builder = builder.Set("name_ciphertext", *update.NameCiphertext)
	}
	if update.DataCiphertext != nil {
		builder = builder.Set("data_ciphertext", *update.DataCiphertext)
	}
	if update.ItemKeyWrapped != nil {
		builder = builder.Set("item_key_wrapped", *update.ItemKeyWrapped)
	}
	if update.MetadataCiphertext != nil {
		builder = builder.Set("metadata_ciphertext", *update.MetadataCiphertext)
	}
	if update.FolderID != nil {
		builder = builder.Set("folder_id", *update.FolderID)
	}
	if update.Favorite != nil {
		builder = builder.Set("favorite", *update.Favorite)
	}
	if update.Type != nil {
		builder = builder.Set("type", *update.Type)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		log.Err(err).Str("func", "*secretRepository.Update").Msg("error: building update query")
		return models.Secret{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Err(err).Str("func", "*secretRepository.Update").Msg("error: beginning transaction")
		return models.Secret{}, fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
	}
	defer tx.Rollback()

	var updated models.Secret
	if err := scanSecret(tx.QueryRowContext(ctx, query, args...), &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Secret{}, ErrSecretNotFound
		}
		log.Err(err).Str("func", "*secretRepository.Update").Msg("error: updating secret")
		return models.Secret{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	if update.ContentChanged() {
		var version int
		if err := tx.QueryRowContext(ctx, appendSecretVersion,
			uuid.New(), updated.ID, updated.DataCiphertext, updated.ItemKeyWrapped, updatedBy,
		).Scan(&version); err != nil {
			log.Err(err).Str("func", "*secretRepository.Update").Msg("error: appending version")
			return models.Secret{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
		}
	}

	if err := tx.Commit(); err != nil {
		log.Err(err).Str("func", "*secretRepository.Update").Msg("error: committing transaction")
		return models.Secret{}, fmt.Errorf("%w: %w", ErrCommittingTransaction, err)
	}

	return updated, nil
}

// TouchAccess bumps the access statistics of an undeleted secret.
func (r *secretRepository) TouchAccess(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContext(ctx)

	res, err := r.db.ExecContext(ctx, touchSecretAccess, id)
	if err != nil {
		log.Err(err).Str("func", "*secretRepository.TouchAccess").Msg("error: touching access stats")
		return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrSecretNotFound
	}

	return nil
}

// SetArchived moves the secret between the active and archived buckets.
// Deleted secrets cannot be archived.
func (r *secretRepository) SetArchived(ctx context.Context, id uuid.UUID, archived bool) error {
	log := logger.FromContext(ctx)

	res, err := r.db.ExecContext(ctx, setSecretArchived, id, archived)
	if err != nil {
		log.Err(err).Str("func", "*secretRepository.SetArchived").Msg("error: setting archived flag")
		return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrSecretNotFound
	}

	return nil
}

// SoftDelete moves the secret into the trash, clearing the archived and
// favorite flags so the state buckets stay disjoint.
func (r *secretRepository) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	log := logger.FromContext(ctx)

	res, err := r.db.ExecContext(ctx, softDeleteSecret, id, at)
	if err != nil {
		log.Err(err).Str("func", "*secretRepository.SoftDelete").Msg("error: soft-deleting secret")
		return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrSecretNotFound
	}

	return nil
}

// Restore brings a trashed secret back to the active state. A secret the
// sweeper already purged is gone and reports ErrSecretNotFound.
func (r *secretRepository) Restore(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContext(ctx)

	res, err := r.db.ExecContext(ctx, restoreSecret, id)
	if err != nil {
		log.Err(err).Str("func", "*secretRepository.Restore").Msg("error: restoring secret")
		return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrSecretNotFound
	}

	return nil
}

// Delete permanently removes the secret, its versions and its share grants.
func (r *secretRepository) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContext(ctx)

	res, err := r.db.ExecContext(ctx, deleteSecret, id)
	if err != nil {
		log.Err(err).Str("func", "*secretRepository.Delete").Msg("error: deleting secret")
		return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrSecretNotFound
	}

	return nil
}

// Move relocates the secret into another vault with the re-wrapped item key
// supplied by the client. The folder association is dropped because folders
// belong to the source vault.
func (r *secretRepository) Move(ctx context.Context, id, vaultID uuid.UUID, itemKeyWrapped string) error {
	log := logger.FromContext(ctx)

	res, err := r.db.ExecContext(ctx, moveSecret, id, vaultID, itemKeyWrapped)
	if err != nil {
		log.Err(err).Str("func", "*secretRepository.Move").Msg("error: moving secret")

		switch postgresError(err) {
		case pgerrcode.ForeignKeyViolation:
			return ErrVaultNotFound
		default:
			return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
		}
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrSecretNotFound
	}

	return nil
}

// Versions returns the secret's full history, newest first.
func (r *secretRepository) Versions(ctx context.Context, secretID uuid.UUID) ([]models.SecretVersion, error) {
	log := logger.FromContext(ctx)

	rows, err := r.db.QueryContext(ctx, listSecretVersions, secretID)
	if err != nil {
		log.Err(err).Str("func", "*secretRepository.Versions").Msg("error: listing versions")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	var versions []models.SecretVersion
	for rows.Next() {
		var version models.SecretVersion
		if err := rows.Scan(
			&version.ID, &version.SecretID, &version.DataCiphertext,
			&version.ItemKeyWrapped, &version.VersionNumber, &version.CreatedBy, &version.CreatedAt,
		); err != nil {
			log.Err(err).Str("func", "*secretRepository.Versions").Msg("error: scanning version row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, err)
		}
		versions = append(versions, version)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}

	return versions, nil
}

// PurgeDeletedBefore permanently removes secrets whose soft-delete timestamp
// is older than cutoff. Called by the retention sweeper.
func (r *secretRepository) PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	log := logger.FromContext(ctx)

	res, err := r.db.ExecContext(ctx, purgeDeletedSecrets, cutoff)
	if err != nil {
		log.Err(err).Str("func", "*secretRepository.PurgeDeletedBefore").Msg("error: purging deleted secrets")
		return 0, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	purged, _ := res.RowsAffected()
	return purged, nil
}
