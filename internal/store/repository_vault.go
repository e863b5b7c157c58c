package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"

	"github.com/vaultkeeper/vaultkeeper/internal/logger"
	"github.com/vaultkeeper/vaultkeeper/models"
)

// vaultRepository is the PostgreSQL-backed implementation of
// [VaultRepository].
type vaultRepository struct {
	logger *logger.Logger
	db     *DB
}

// NewVaultRepository constructs a [VaultRepository] backed by the provided
// database connection and logger.
func NewVaultRepository(db *DB, logger *logger.Logger) VaultRepository {
	logger.Debug().Msg("creating vault repository")
	return &vaultRepository{
		db:     db,
		logger: logger,
	}
}

func scanVault(s rowScanner, v *models.Vault) error {
	return s.Scan(
		&v.ID, &v.OwnerID, &v.OrgID, &v.Type, &v.NameCiphertext,
		&v.DescriptionCiphertext, &v.Icon, &v.CreatedAt, &v.UpdatedAt,
	)
}

// Create persists a new vault and returns the stored row.
func (r *vaultRepository) Create(ctx context.Context, vault models.Vault) (models.Vault, error) {
	log := logger.FromContext(ctx)

	if vault.ID == uuid.Nil {
		vault.ID = uuid.New()
	}

	row := r.db.QueryRowContext(ctx, createVault,
		vault.ID, vault.OwnerID, vault.OrgID, vault.Type,
		vault.NameCiphertext, vault.DescriptionCiphertext, vault.Icon,
	)

	var created models.Vault
	if err := scanVault(row, &created); err != nil {
		log.Err(err).Str("func", "*vaultRepository.Create").Msg("error: creating vault")

		switch postgresError(err) {
		case pgerrcode.ForeignKeyViolation:
			return models.Vault{}, ErrUserNotFound
		default:
			return models.Vault{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
		}
	}

	return created, nil
}

// FindByID retrieves one vault.
func (r *vaultRepository) FindByID(ctx context.Context, id uuid.UUID) (models.Vault, error) {
	log := logger.FromContext(ctx)

	var vault models.Vault
	if err := scanVault(r.db.QueryRowContext(ctx, findVaultByID, id), &vault); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Vault{}, ErrVaultNotFound
		}
		log.Err(err).Str("func", "*vaultRepository.FindByID").Msg("error: finding vault")
		return models.Vault{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return vault, nil
}

// ListByOwner returns every vault the user owns, oldest first.
func (r *vaultRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Vault, error) {
	log := logger.FromContext(ctx)

	rows, err := r.db.QueryContext(ctx, listVaultsByOwner, ownerID)
	if err != nil {
		log.Err(err).Str("func", "*vaultRepository.ListByOwner").Msg("error: listing vaults")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	var vaults []models.Vault
	for rows.Next() {
		var vault models.Vault
		if err := scanVault(rows, &vault); err != nil {
			log.Err(err).Str("func", "*vaultRepository.ListByOwner").Msg("error: scanning vault row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, err)
		}
		vaults = append(vaults, vault)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}

	return vaults, nil
}

// Update applies the non-nil fields of update and returns the fresh row.
func (r *vaultRepository) Update(ctx context.Context, id uuid.UUID, update models.VaultUpdate) (models.Vault, error) {
	log := logger.FromContext(ctx)

	builder := sq.Update("vaults").
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + vaultColumns).
		PlaceholderFormat(sq.Dollar)

	if update.NameCiphertext != nil {
		builder = builder.Set("name_ciphertext", *update.NameCiphertext)
	}
	if update.DescriptionCiphertext != nil {
		builder = builder.Set("description_ciphertext", *update.DescriptionCiphertext)
	}
	if update.Icon != nil {
		builder = builder.Set("icon", *update.Icon)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		log.Err(err).Str("func", "*vaultRepository.Update").Msg("error: building update query")
		return models.Vault{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	var vault models.Vault
	if err := scanVault(r.db.QueryRowContext(ctx, query, args...), &vault); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Vault{}, ErrVaultNotFound
		}
		log.Err(err).Str("func", "*vaultRepository.Update").Msg("error: updating vault")
		return models.Vault{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return vault, nil
}

// Delete removes the vault; its folders, secrets and their share grants
// follow through cascades.
func (r *vaultRepository) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContext(ctx)

	res, err := r.db.ExecContext(ctx, deleteVault, id)
	if err != nil {
		log.Err(err).Str("func", "*vaultRepository.Delete").Msg("error: deleting vault")
		return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrVaultNotFound
	}

	return nil
}
