package service

import (
	"context"

	"github.com/vaultkeeper/vaultkeeper/internal/logger"
	"github.com/vaultkeeper/vaultkeeper/internal/store"
	"github.com/vaultkeeper/vaultkeeper/models"
)

// auditSink is the concrete [AuditSink] writing to the audit_log table.
type auditSink struct {
	audit  store.AuditRepository
	logger *logger.Logger
}

// NewAuditSink constructs an [AuditSink] backed by the audit repository.
func NewAuditSink(audit store.AuditRepository, logger *logger.Logger) AuditSink {
	return &auditSink{
		audit:  audit,
		logger: logger,
	}
}

// Record appends one record, best-effort. A failing append is logged and
// swallowed: audit must never fail the operation it describes.
func (s *auditSink) Record(ctx context.Context, record models.AuditRecord) {
	if err := s.audit.Append(ctx, record); err != nil {
		logger.FromContext(ctx).Err(err).
			Str("action", record.Action).
			Msg("audit record dropped")
	}
}

// Query returns records matching the filter.
func (s *auditSink) Query(ctx context.Context, filter models.AuditFilter) ([]models.AuditRecord, error) {
	return s.audit.Query(ctx, filter)
}
