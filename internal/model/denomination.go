package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Denomination is a configured currency unit (a banknote value) used to
// build cash count breakdowns. Rows are never hard-deleted: historical
// session breakdowns reference denomination values, so deactivation keeps
// history referable.
type Denomination struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	// Value is unique across active AND inactive rows.
	Value        decimal.Decimal `gorm:"type:decimal(12,2);not null;uniqueIndex"`
	Label        string          `gorm:"type:varchar(50);not null"`
	IsActive     bool            `gorm:"not null;default:true"`
	DisplayOrder int             `gorm:"not null;default:0"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
