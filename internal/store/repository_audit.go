package store

import (
	"context"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/vaultkeeper/vaultkeeper/internal/logger"
	"github.com/vaultkeeper/vaultkeeper/models"
)

// auditRepository is the PostgreSQL-backed implementation of
// [AuditRepository]. Records go into audit_log and are never updated.
type auditRepository struct {
	logger *logger.Logger
	db     *DB
}

// NewAuditRepository constructs an [AuditRepository] backed by the provided
// database connection and logger.
func NewAuditRepository(db *DB, logger *logger.Logger) AuditRepository {
	logger.Debug().Msg("creating audit repository")
	return &auditRepository{
		db:     db,
		logger: logger,
	}
}

// Append writes one record. Metadata marshals into a jsonb column; a nil
// map stores SQL NULL.
func (r *auditRepository) Append(ctx context.Context, record models.AuditRecord) error {
	log := logger.FromContext(ctx)

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	var metadata []byte
	if record.Metadata != nil {
		encoded, err := json.Marshal(record.Metadata)
		if err != nil {
			log.Err(err).Str("func", "*auditRepository.Append").Msg("error: marshaling metadata")
			return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
		}
		metadata = encoded
	}

	if _, err := r.db.ExecContext(ctx, appendAuditRecord,
		record.ID, record.ActorID, record.OrgID, record.Action, record.ResourceType,
		record.ResourceID, record.IPAddress, record.UserAgent, metadata,
	); err != nil {
		log.Err(err).Str("func", "*auditRepository.Append").Msg("error: appending audit record")
		return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return nil
}

// Query returns records matching the filter, newest first.
func (r *auditRepository) Query(ctx context.Context, filter models.AuditFilter) ([]models.AuditRecord, error) {
	log := logger.FromContext(ctx)

	builder := sq.Select(
		"id", "actor_id", "org_id", "action", "resource_type",
		"resource_id", "ip_address", "user_agent", "metadata", "created_at",
	).
		From("audit_log").
		OrderBy("created_at DESC").
		PlaceholderFormat(sq.Dollar)

	if filter.OrgID != nil {
		builder = builder.Where(sq.Eq{"org_id": *filter.OrgID})
	}
	if filter.ActorID != nil {
		builder = builder.Where(sq.Eq{"actor_id": *filter.ActorID})
	}
	if filter.Action != "" {
		builder = builder.Where(sq.Eq{"action": filter.Action})
	}
	if filter.ResourceType != "" {
		builder = builder.Where(sq.Eq{"resource_type": filter.ResourceType})
	}
	if filter.Since != nil {
		builder = builder.Where(sq.GtOrEq{"created_at": *filter.Since})
	}
	if filter.Until != nil {
		builder = builder.Where(sq.Lt{"created_at": *filter.Until})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		builder = builder.Offset(filter.Offset)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		log.Err(err).Str("func", "*auditRepository.Query").Msg("error: building audit query")
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).Str("func", "*auditRepository.Query").Msg("error: querying audit log")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	var records []models.AuditRecord
	for rows.Next() {
		var (
			record   models.AuditRecord
			metadata []byte
		)
		if err := rows.Scan(
			&record.ID, &record.ActorID, &record.OrgID, &record.Action, &record.ResourceType,
			&record.ResourceID, &record.IPAddress, &record.UserAgent, &metadata, &record.CreatedAt,
		); err != nil {
			log.Err(err).Str("func", "*auditRepository.Query").Msg("error: scanning audit row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &record.Metadata); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrScanningRow, err)
			}
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}

	return records, nil
}
