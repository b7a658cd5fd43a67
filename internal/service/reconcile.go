package service

import (
	"time"

	"tillpoint/internal/dto"
	"tillpoint/internal/model"

	"github.com/shopspring/decimal"
)

// ReconcileResult carries the per-channel discrepancies plus the two
// informational warnings. Warnings never block a close and never change the
// persisted discrepancy values; they exist to be routed to alerts.
type ReconcileResult struct {
	Discrepancy      model.ChannelTotals
	TotalDiscrepancy decimal.Decimal
	PettyCash        *dto.PettyCashWarning
	AfterHours       *dto.AfterHoursWarning
}

// Reconcile computes declared − expected per channel (negative = shortfall,
// positive = overage), flags a petty-cash deficit when the declared cash is
// below the branch float minimum, and flags an after-hours close when
// closedAt falls outside the branch schedule for that weekday.
func Reconcile(declared, expected model.ChannelTotals, branch *model.Branch, closedAt time.Time) ReconcileResult {
	disc := model.ChannelTotals{
		Cash:     declared.Cash.Sub(expected.Cash),
		Card:     declared.Card.Sub(expected.Card),
		QR:       declared.QR.Sub(expected.QR),
		Transfer: declared.Transfer.Sub(expected.Transfer),
	}

	result := ReconcileResult{
		Discrepancy:      disc,
		TotalDiscrepancy: disc.Sum(),
	}

	if declared.Cash.LessThan(branch.PettyCashAmount) {
		result.PettyCash = &dto.PettyCashWarning{
			DeclaredCash:      declared.Cash,
			PettyCashRequired: branch.PettyCashAmount,
			Deficit:           branch.PettyCashAmount.Sub(declared.Cash),
		}
	}

	if len(branch.OperatingHours) > 0 && !branch.OperatingHours.Covers(closedAt) {
		result.AfterHours = &dto.AfterHoursWarning{
			ClosedAt: closedAt.Format(time.RFC3339),
			Weekday:  closedAt.Weekday().String(),
		}
	}

	return result
}
