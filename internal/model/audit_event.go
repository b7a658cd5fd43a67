package model

import (
	"time"

	"github.com/google/uuid"
)

// AuditEvent is the persisted form of a session lifecycle event. Rows are
// append-only; the (session_id, occurred_at) unique index makes at-least-
// once delivery from the queue idempotent.
type AuditEvent struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Action       string     `gorm:"type:varchar(40);not null;index"`
	SessionID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_audit_session_at"`
	RegisterID   uuid.UUID  `gorm:"type:uuid;not null"`
	BranchID     uuid.UUID  `gorm:"type:uuid;not null;index"`
	ActorID      uuid.UUID  `gorm:"type:uuid;not null"`
	SupervisorID *uuid.UUID `gorm:"type:uuid"`
	Reason       *string
	BeforeState  string    `gorm:"type:jsonb;default:'null'"`
	AfterState   string    `gorm:"type:jsonb;default:'null'"`
	OccurredAt   time.Time `gorm:"not null;uniqueIndex:idx_audit_session_at"`
	CreatedAt    time.Time
}
