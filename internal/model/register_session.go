package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Session status. CANCELLED is terminal for the shift; a CLOSED session may
// transition to REOPENED only through the authorization gate.
const (
	SessionOpen      = "open"
	SessionClosed    = "closed"
	SessionCancelled = "cancelled"
	SessionReopened  = "reopened"
)

// Shift types.
const (
	ShiftMorning   = "morning"
	ShiftAfternoon = "afternoon"
	ShiftFullDay   = "full_day"
)

// BreakdownEntry is one line of a physical bill count. Value and Label are
// snapshotted at capture time — not a live join against the denomination
// table — so renaming or deactivating a denomination never corrupts
// historical reconciliation records.
type BreakdownEntry struct {
	Value decimal.Decimal `json:"value"`
	Label string          `json:"label"`
	Count int64           `json:"count"`
}

// Breakdown is a denomination count snapshot, stored as JSONB.
type Breakdown struct {
	Entries []BreakdownEntry `json:"entries"`
	Coins   decimal.Decimal  `json:"coins"`
}

func (b Breakdown) Value() (driver.Value, error) {
	raw, err := json.Marshal(b)
	return string(raw), err
}

func (b *Breakdown) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, b)
	case string:
		return json.Unmarshal([]byte(v), b)
	case nil:
		*b = Breakdown{}
		return nil
	default:
		return fmt.Errorf("breakdown: cannot scan %T", src)
	}
}

// ChannelTotals holds one amount per payment channel. The four channels are
// a closed set by design: a struct, not a map, keeps the reconciliation
// arithmetic exhaustive at compile time.
type ChannelTotals struct {
	Cash     decimal.Decimal `json:"cash"`
	Card     decimal.Decimal `json:"card"`
	QR       decimal.Decimal `json:"qr"`
	Transfer decimal.Decimal `json:"transfer"`
}

// Sum returns the total across the four channels.
func (t ChannelTotals) Sum() decimal.Decimal {
	return t.Cash.Add(t.Card).Add(t.QR).Add(t.Transfer)
}

// RegisterSession binds one cashier shift to a physical register, from open
// to close. Declared, expected, and discrepancy figures are set atomically
// together at close time, never independently; discrepancy = declared −
// expected for every channel. Closing a reopened session overwrites the
// prior snapshot — the old one survives in the audit trail.
type RegisterSession struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RegisterID uuid.UUID `gorm:"type:uuid;not null;index"`
	BranchID   uuid.UUID `gorm:"type:uuid;not null;index"`
	OpenerID   uuid.UUID `gorm:"type:uuid;not null"`
	CloserID   *uuid.UUID `gorm:"type:uuid"`
	ShiftType  string    `gorm:"type:varchar(20);not null"`
	Status     string    `gorm:"type:varchar(20);not null;default:'open';index"`

	OpenedAt     time.Time
	ClosedAt     *time.Time
	ReopenedAt   *time.Time
	ReopenReason *string

	OpeningCash          decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	OpeningDenominations Breakdown       `gorm:"type:jsonb"`
	OpeningNotes         *string

	DeclaredCash     *decimal.Decimal `gorm:"type:decimal(12,2)"`
	DeclaredCard     *decimal.Decimal `gorm:"type:decimal(12,2)"`
	DeclaredQR       *decimal.Decimal `gorm:"type:decimal(12,2)"`
	DeclaredTransfer *decimal.Decimal `gorm:"type:decimal(12,2)"`

	ExpectedCash     *decimal.Decimal `gorm:"type:decimal(12,2)"`
	ExpectedCard     *decimal.Decimal `gorm:"type:decimal(12,2)"`
	ExpectedQR       *decimal.Decimal `gorm:"type:decimal(12,2)"`
	ExpectedTransfer *decimal.Decimal `gorm:"type:decimal(12,2)"`

	DiscrepancyCash     *decimal.Decimal `gorm:"type:decimal(12,2)"`
	DiscrepancyCard     *decimal.Decimal `gorm:"type:decimal(12,2)"`
	DiscrepancyQR       *decimal.Decimal `gorm:"type:decimal(12,2)"`
	DiscrepancyTransfer *decimal.Decimal `gorm:"type:decimal(12,2)"`

	ClosingDenominations *Breakdown `gorm:"type:jsonb"`
	ClosingNotes         *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsOpen reports whether the session counts against the one-active-session
// invariant.
func (s *RegisterSession) IsOpen() bool {
	return s.Status == SessionOpen || s.Status == SessionReopened
}
