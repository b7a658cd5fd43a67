package repository

import (
	"context"
	"errors"

	"tillpoint/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type DenominationRepository interface {
	List(ctx context.Context, includeInactive bool) ([]model.Denomination, error)
	ListActive(ctx context.Context) ([]model.Denomination, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Denomination, error)
	// FindByValue searches active AND inactive rows — value uniqueness spans both.
	FindByValue(ctx context.Context, value decimal.Decimal) (*model.Denomination, error)
	Create(ctx context.Context, d *model.Denomination) error
	Update(ctx context.Context, d *model.Denomination) error
	// Reorder applies all display-order changes in one transaction.
	Reorder(ctx context.Context, orders map[uuid.UUID]int) error
}

type denominationRepo struct{ db *gorm.DB }

func NewDenominationRepository(db *gorm.DB) DenominationRepository {
	return &denominationRepo{db: db}
}

func (r *denominationRepo) List(ctx context.Context, includeInactive bool) ([]model.Denomination, error) {
	q := r.db.WithContext(ctx).Order("display_order ASC, value DESC")
	if !includeInactive {
		q = q.Where("is_active = true")
	}
	var ds []model.Denomination
	err := q.Find(&ds).Error
	return ds, err
}

func (r *denominationRepo) ListActive(ctx context.Context) ([]model.Denomination, error) {
	return r.List(ctx, false)
}

func (r *denominationRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Denomination, error) {
	var d model.Denomination
	if err := r.db.WithContext(ctx).First(&d, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *denominationRepo) FindByValue(ctx context.Context, value decimal.Decimal) (*model.Denomination, error) {
	var d model.Denomination
	err := r.db.WithContext(ctx).Where("value = ?", value).First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *denominationRepo) Create(ctx context.Context, d *model.Denomination) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *denominationRepo) Update(ctx context.Context, d *model.Denomination) error {
	return r.db.WithContext(ctx).Save(d).Error
}

func (r *denominationRepo) Reorder(ctx context.Context, orders map[uuid.UUID]int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for id, order := range orders {
			res := tx.Model(&model.Denomination{}).Where("id = ?", id).Update("display_order", order)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
		}
		return nil
	})
}
