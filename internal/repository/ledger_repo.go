package repository

import (
	"context"

	"tillpoint/internal/domain"
	"tillpoint/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LedgerReader is the narrow read-only contract against the sales pipeline.
// Expected totals exclude voided sales and do NOT include opening cash —
// the session service adds the float to the cash channel.
type LedgerReader interface {
	GetExpectedTotals(ctx context.Context, sessionID uuid.UUID) (model.ChannelTotals, error)
	GetUnapprovedVoids(ctx context.Context, sessionID uuid.UUID) (*domain.UnapprovedVoidSummary, error)
}

type ledgerRepo struct{ db *gorm.DB }

func NewLedgerReader(db *gorm.DB) LedgerReader { return &ledgerRepo{db: db} }

type channelSum struct {
	Channel string
	Total   decimal.Decimal
}

func (r *ledgerRepo) GetExpectedTotals(ctx context.Context, sessionID uuid.UUID) (model.ChannelTotals, error) {
	var totals model.ChannelTotals

	var saleSums []channelSum
	err := r.db.WithContext(ctx).Model(&model.Sale{}).
		Select("channel, COALESCE(SUM(total), 0) AS total").
		Where("session_id = ? AND voided = false", sessionID).
		Group("channel").
		Scan(&saleSums).Error
	if err != nil {
		return totals, err
	}
	for _, s := range saleSums {
		addChannel(&totals, s.Channel, s.Total)
	}

	var movSums []channelSum
	err = r.db.WithContext(ctx).Model(&model.CashMovement{}).
		Select("channel, COALESCE(SUM(amount), 0) AS total").
		Where("session_id = ?", sessionID).
		Group("channel").
		Scan(&movSums).Error
	if err != nil {
		return totals, err
	}
	for _, m := range movSums {
		addChannel(&totals, m.Channel, m.Total)
	}

	return totals, nil
}

func addChannel(t *model.ChannelTotals, channel string, amount decimal.Decimal) {
	switch channel {
	case model.ChannelCash:
		t.Cash = t.Cash.Add(amount)
	case model.ChannelCard:
		t.Card = t.Card.Add(amount)
	case model.ChannelQR:
		t.QR = t.QR.Add(amount)
	case model.ChannelTransfer:
		t.Transfer = t.Transfer.Add(amount)
	}
}

func (r *ledgerRepo) GetUnapprovedVoids(ctx context.Context, sessionID uuid.UUID) (*domain.UnapprovedVoidSummary, error) {
	var sales []model.Sale
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND voided = true AND void_approved = false", sessionID).
		Order("voided_at ASC").
		Find(&sales).Error
	if err != nil {
		return nil, err
	}

	summary := &domain.UnapprovedVoidSummary{
		HasUnapprovedVoids: len(sales) > 0,
		Count:              len(sales),
	}
	for _, s := range sales {
		v := domain.VoidedSale{
			SaleID:     s.ID,
			SaleNumber: s.SaleNumber,
			Amount:     s.Total,
			CreatedBy:  s.CreatedBy,
		}
		if s.VoidReason != nil {
			v.Reason = *s.VoidReason
		}
		if s.VoidedAt != nil {
			v.VoidedAt = *s.VoidedAt
		}
		if s.VoidedBy != nil {
			v.VoidedBy = *s.VoidedBy
		}
		summary.Voids = append(summary.Voids, v)
	}
	return summary, nil
}
