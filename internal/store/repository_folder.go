package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"

	"github.com/vaultkeeper/vaultkeeper/internal/logger"
	"github.com/vaultkeeper/vaultkeeper/models"
)

// folderRepository is the PostgreSQL-backed implementation of
// [FolderRepository].
type folderRepository struct {
	logger *logger.Logger
	db     *DB
}

// NewFolderRepository constructs a [FolderRepository] backed by the provided
// database connection and logger.
func NewFolderRepository(db *DB, logger *logger.Logger) FolderRepository {
	logger.Debug().Msg("creating folder repository")
	return &folderRepository{
		db:     db,
		logger: logger,
	}
}

func scanFolder(s rowScanner, f *models.Folder) error {
	return s.Scan(&f.ID, &f.VaultID, &f.NameCiphertext, &f.ParentID, &f.CreatedAt)
}

// Create persists a new folder and returns the stored row.
func (r *folderRepository) Create(ctx context.Context, folder models.Folder) (models.Folder, error) {
	log := logger.FromContext(ctx)

	if folder.ID == uuid.Nil {
		folder.ID = uuid.New()
	}

	row := r.db.QueryRowContext(ctx, createFolder, folder.ID, folder.VaultID, folder.NameCiphertext, folder.ParentID)

	var created models.Folder
	if err := scanFolder(row, &created); err != nil {
		log.Err(err).Str("func", "*folderRepository.Create").Msg("error: creating folder")

		switch postgresError(err) {
		case pgerrcode.ForeignKeyViolation:
			return models.Folder{}, ErrVaultNotFound
		default:
			return models.Folder{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
		}
	}

	return created, nil
}

// FindByID retrieves one folder.
func (r *folderRepository) FindByID(ctx context.Context, id uuid.UUID) (models.Folder, error) {
	log := logger.FromContext(ctx)

	var folder models.Folder
	if err := scanFolder(r.db.QueryRowContext(ctx, findFolderByID, id), &folder); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Folder{}, ErrFolderNotFound
		}
		log.Err(err).Str("func", "*folderRepository.FindByID").Msg("error: finding folder")
		return models.Folder{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return folder, nil
}

// ListByVault returns every folder of the vault, oldest first. Callers
// rebuild the tree from ParentID.
func (r *folderRepository) ListByVault(ctx context.Context, vaultID uuid.UUID) ([]models.Folder, error) {
	log := logger.FromContext(ctx)

	rows, err := r.db.QueryContext(ctx, listFoldersByVault, vaultID)
	if err != nil {
		log.Err(err).Str("func", "*folderRepository.ListByVault").Msg("error: listing folders")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	var folders []models.Folder
	for rows.Next() {
		var folder models.Folder
		if err := scanFolder(rows, &folder); err != nil {
			log.Err(err).Str("func", "*folderRepository.ListByVault").Msg("error: scanning folder row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, err)
		}
		folders = append(folders, folder)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}

	return folders, nil
}

// SetParent re-parents the folder. Cycle checks happen in the service layer
// before this call.
func (r *folderRepository) SetParent(ctx context.Context, id uuid.UUID, parentID *uuid.UUID) error {
	log := logger.FromContext(ctx)

	res, err := r.db.ExecContext(ctx, setFolderParent, id, parentID)
	if err != nil {
		log.Err(err).Str("func", "*folderRepository.SetParent").Msg("error: setting folder parent")
		return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrFolderNotFound
	}

	return nil
}
