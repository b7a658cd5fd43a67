package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment channel identifiers as stored on ledger rows.
const (
	ChannelCash     = "cash"
	ChannelCard     = "card"
	ChannelQR       = "qr"
	ChannelTransfer = "transfer"
)

// Sale is the minimal ledger row the session subsystem reads. The sales
// capture pipeline that writes these rows lives elsewhere; this model only
// backs the GetExpectedTotals / GetUnapprovedVoids contract.
type Sale struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	SaleNumber int64           `gorm:"not null;uniqueIndex"`
	Channel    string          `gorm:"type:varchar(20);not null"`
	Total      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CreatedBy  uuid.UUID       `gorm:"type:uuid;not null"`
	CreatedAt  time.Time

	Voided       bool `gorm:"not null;default:false;index"`
	VoidApproved bool `gorm:"not null;default:false"`
	VoidReason   *string
	VoidedAt     *time.Time
	VoidedBy     *uuid.UUID `gorm:"type:uuid"`
}

// CashMovement is a manual drawer adjustment (change fund top-up, cash
// drop, expense). Positive amounts go in, negative out. Movements are
// immutable — corrections create inverse entries.
type CashMovement struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Channel     string          `gorm:"type:varchar(20);not null"`
	Amount      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Description string          `gorm:"not null"`
	CreatedBy   uuid.UUID       `gorm:"type:uuid;not null"`
	CreatedAt   time.Time
}
