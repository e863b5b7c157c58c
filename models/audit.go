package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditRecord is one append-only fact about a state-changing operation.
// Records are written by the core and never updated or deleted by it.
type AuditRecord struct {
	ID           uuid.UUID      `json:"id"`
	ActorID      *uuid.UUID     `json:"actor_id,omitempty"`
	OrgID        *uuid.UUID     `json:"org_id,omitempty"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id,omitempty"`
	IPAddress    string         `json:"ip_address,omitempty"`
	UserAgent    string         `json:"user_agent,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// TableName returns the name of the database table backing the AuditRecord model.
func (a AuditRecord) TableName() string {
	return "audit_log"
}

// AuditFilter narrows an audit query. Zero values mean "no constraint".
type AuditFilter struct {
	OrgID        *uuid.UUID
	ActorID      *uuid.UUID
	Action       string
	ResourceType string
	Since        *time.Time
	Until        *time.Time
	Limit        uint64
	Offset       uint64
}
