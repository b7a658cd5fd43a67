package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VoidedSale is one voided sale awaiting manager/owner approval.
type VoidedSale struct {
	SaleID     uuid.UUID       `json:"sale_id"`
	SaleNumber int64           `json:"sale_number"`
	Amount     decimal.Decimal `json:"amount"`
	Reason     string          `json:"reason"`
	VoidedAt   time.Time       `json:"voided_at"`
	VoidedBy   uuid.UUID       `json:"voided_by"`
	CreatedBy  uuid.UUID       `json:"created_by"`
}

// UnapprovedVoidSummary is computed on demand from the sales ledger, scoped
// to one session. It is never persisted.
type UnapprovedVoidSummary struct {
	HasUnapprovedVoids bool         `json:"has_unapproved_voids"`
	Count              int          `json:"count"`
	Voids              []VoidedSale `json:"voids"`
}
