package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

// DenominationCount is one line of a cashier's physical bill count.
type DenominationCount struct {
	Value decimal.Decimal `json:"value" validate:"required"`
	Count int64           `json:"count" validate:"min=0"`
}

type OpenSessionRequest struct {
	RegisterID           string              `json:"register_id" validate:"required,uuid"`
	ShiftType            string              `json:"shift_type"  validate:"required,oneof=morning afternoon full_day"`
	OpeningCash          decimal.Decimal     `json:"opening_cash" validate:"min=0"`
	OpeningDenominations []DenominationCount `json:"opening_denominations" validate:"dive"`
	Coins                decimal.Decimal     `json:"coins" validate:"min=0"`
	Notes                *string             `json:"notes"`
}

type CloseSessionRequest struct {
	DeclaredCash         decimal.Decimal     `json:"declared_cash"     validate:"min=0"`
	DeclaredCard         decimal.Decimal     `json:"declared_card"     validate:"min=0"`
	DeclaredQR           decimal.Decimal     `json:"declared_qr"       validate:"min=0"`
	DeclaredTransfer     decimal.Decimal     `json:"declared_transfer" validate:"min=0"`
	ClosingDenominations []DenominationCount `json:"closing_denominations" validate:"dive"`
	Coins                decimal.Decimal     `json:"coins" validate:"min=0"`
	Notes                *string             `json:"notes"`
}

type ReopenSessionRequest struct {
	Reason        string `json:"reason"         validate:"required"`
	SupervisorID  string `json:"supervisor_id"  validate:"required,uuid"`
	SupervisorPIN string `json:"supervisor_pin" validate:"required"`
}

type ForceCloseRequest struct {
	Reason string `json:"reason" validate:"required,min=3"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ChannelAmounts struct {
	Cash     decimal.Decimal `json:"cash"`
	Card     decimal.Decimal `json:"card"`
	QR       decimal.Decimal `json:"qr"`
	Transfer decimal.Decimal `json:"transfer"`
	Total    decimal.Decimal `json:"total"`
}

type PettyCashWarning struct {
	DeclaredCash      decimal.Decimal `json:"declared_cash"`
	PettyCashRequired decimal.Decimal `json:"petty_cash_required"`
	Deficit           decimal.Decimal `json:"deficit"`
}

type AfterHoursWarning struct {
	ClosedAt string `json:"closed_at"`
	Weekday  string `json:"weekday"`
}

type ClosingResult struct {
	SessionID         string             `json:"session_id"`
	Status            string             `json:"status"`
	Declared          ChannelAmounts     `json:"declared"`
	Expected          ChannelAmounts     `json:"expected"`
	Discrepancy       ChannelAmounts     `json:"discrepancy"`
	TotalDiscrepancy  decimal.Decimal    `json:"total_discrepancy"`
	PettyCashWarning  *PettyCashWarning  `json:"petty_cash_warning,omitempty"`
	AfterHoursWarning *AfterHoursWarning `json:"after_hours_warning,omitempty"`
	ClosedAt          string             `json:"closed_at"`
}

type SessionResponse struct {
	SessionID    string           `json:"session_id"`
	RegisterID   string           `json:"register_id"`
	BranchID     string           `json:"branch_id"`
	Status       string           `json:"status"`
	ShiftType    string           `json:"shift_type"`
	OpenerID     string           `json:"opener_id"`
	CloserID     *string          `json:"closer_id,omitempty"`
	OpeningCash  decimal.Decimal  `json:"opening_cash"`
	Declared     *ChannelAmounts  `json:"declared,omitempty"`
	Expected     *ChannelAmounts  `json:"expected,omitempty"`
	Discrepancy  *ChannelAmounts  `json:"discrepancy,omitempty"`
	OpeningNotes *string          `json:"opening_notes,omitempty"`
	ClosingNotes *string          `json:"closing_notes,omitempty"`
	ReopenReason *string          `json:"reopen_reason,omitempty"`
	OpenedAt     string           `json:"opened_at"`
	ClosedAt     *string          `json:"closed_at,omitempty"`
	ReopenedAt   *string          `json:"reopened_at,omitempty"`
}
