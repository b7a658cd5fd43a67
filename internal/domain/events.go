package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditAction identifies a session lifecycle transition in the audit trail.
type AuditAction string

const (
	AuditSessionOpened      AuditAction = "session_opened"
	AuditSessionClosed      AuditAction = "session_closed"
	AuditSessionForceClosed AuditAction = "session_force_closed"
	AuditSessionReopened    AuditAction = "session_reopened"
)

// AuditEntry is the structured event emitted for every session transition.
// Delivery is at-least-once and idempotent on (session id, At); a failed
// emission never rolls back the transition it describes.
type AuditEntry struct {
	Action       AuditAction     `json:"action"`
	SessionID    uuid.UUID       `json:"session_id"`
	RegisterID   uuid.UUID       `json:"register_id"`
	BranchID     uuid.UUID       `json:"branch_id"`
	ActorID      uuid.UUID       `json:"actor_id"`
	SupervisorID *uuid.UUID      `json:"supervisor_id,omitempty"`
	Reason       string          `json:"reason,omitempty"`
	Before       json.RawMessage `json:"before,omitempty"`
	After        json.RawMessage `json:"after,omitempty"`
	At           time.Time       `json:"at"`
}

// AlertKind identifies the alert routed to branch owner/manager.
type AlertKind string

const (
	AlertPettyCashDeficit AlertKind = "petty_cash_deficit"
	AlertAfterHoursClose  AlertKind = "after_hours_close"
	AlertSessionReopened  AlertKind = "session_reopened"
)

// Alert is a notification addressed to the branch owner/manager roles.
// The service composes subject and body; the alert worker only resolves
// recipients and delivers.
type Alert struct {
	Kind         AlertKind `json:"kind"`
	BranchID     uuid.UUID `json:"branch_id"`
	SessionID    uuid.UUID `json:"session_id"`
	HighPriority bool      `json:"high_priority"`
	Subject      string    `json:"subject"`
	Body         string    `json:"body"`
	At           time.Time `json:"at"`
}
