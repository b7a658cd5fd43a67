package service

import (
	"context"
	"errors"

	"tillpoint/internal/domain"
	"tillpoint/internal/dto"
	"tillpoint/internal/model"
	"tillpoint/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type DenominationService interface {
	List(ctx context.Context, includeInactive bool) ([]dto.DenominationResponse, error)
	Create(ctx context.Context, req dto.CreateDenominationRequest) (*dto.DenominationResponse, error)
	Update(ctx context.Context, id uuid.UUID, req dto.UpdateDenominationRequest) (*dto.DenominationResponse, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	Reorder(ctx context.Context, req dto.ReorderRequest) error
	// ComputeTotal interprets a physical bill count through the active
	// catalog: value × count summed over known active denominations, plus
	// coins. Unknown or inactive values are skipped, not errors — clients
	// may hold a stale catalog. Returns the total and the snapshot to store.
	ComputeTotal(ctx context.Context, counts []dto.DenominationCount, coins decimal.Decimal) (decimal.Decimal, model.Breakdown, error)
}

type denominationService struct {
	repo repository.DenominationRepository
}

func NewDenominationService(repo repository.DenominationRepository) DenominationService {
	return &denominationService{repo: repo}
}

func (s *denominationService) List(ctx context.Context, includeInactive bool) ([]dto.DenominationResponse, error) {
	ds, err := s.repo.List(ctx, includeInactive)
	if err != nil {
		return nil, err
	}
	out := make([]dto.DenominationResponse, 0, len(ds))
	for _, d := range ds {
		out = append(out, toDenominationResponse(&d))
	}
	return out, nil
}

func (s *denominationService) Create(ctx context.Context, req dto.CreateDenominationRequest) (*dto.DenominationResponse, error) {
	existing, err := s.repo.FindByValue(ctx, req.Value)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, &domain.DuplicateValueError{Value: req.Value}
	}

	d := &model.Denomination{
		Value:        req.Value,
		Label:        req.Label,
		IsActive:     true,
		DisplayOrder: req.DisplayOrder,
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, err
	}
	resp := toDenominationResponse(d)
	return &resp, nil
}

func (s *denominationService) Update(ctx context.Context, id uuid.UUID, req dto.UpdateDenominationRequest) (*dto.DenominationResponse, error) {
	d, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &domain.NotFoundError{Entity: "denomination"}
		}
		return nil, err
	}

	if req.Value != nil && !req.Value.Equal(d.Value) {
		other, err := s.repo.FindByValue(ctx, *req.Value)
		if err != nil {
			return nil, err
		}
		if other != nil && other.ID != d.ID {
			return nil, &domain.DuplicateValueError{Value: *req.Value}
		}
		d.Value = *req.Value
	}
	if req.Label != nil {
		d.Label = *req.Label
	}
	if req.DisplayOrder != nil {
		d.DisplayOrder = *req.DisplayOrder
	}

	if err := s.repo.Update(ctx, d); err != nil {
		return nil, err
	}
	resp := toDenominationResponse(d)
	return &resp, nil
}

// Deactivate soft-deletes: the row stays because historical session
// breakdowns reference its value.
func (s *denominationService) Deactivate(ctx context.Context, id uuid.UUID) error {
	d, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &domain.NotFoundError{Entity: "denomination"}
		}
		return err
	}
	d.IsActive = false
	return s.repo.Update(ctx, d)
}

// Reorder is all-or-nothing: one unknown id fails the whole batch.
func (s *denominationService) Reorder(ctx context.Context, req dto.ReorderRequest) error {
	orders := make(map[uuid.UUID]int, len(req.Items))
	for _, item := range req.Items {
		id, err := uuid.Parse(item.ID)
		if err != nil {
			return domain.Validationf("invalid denomination id %q", item.ID)
		}
		orders[id] = item.DisplayOrder
	}
	if err := s.repo.Reorder(ctx, orders); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &domain.NotFoundError{Entity: "denomination"}
		}
		return err
	}
	return nil
}

func (s *denominationService) ComputeTotal(ctx context.Context, counts []dto.DenominationCount, coins decimal.Decimal) (decimal.Decimal, model.Breakdown, error) {
	snapshot := model.Breakdown{Coins: coins}
	active, err := s.repo.ListActive(ctx)
	if err != nil {
		return decimal.Zero, snapshot, err
	}

	labels := make(map[string]string, len(active))
	for _, d := range active {
		labels[d.Value.String()] = d.Label
	}

	total := coins
	for _, c := range counts {
		label, known := labels[c.Value.String()]
		if !known {
			continue
		}
		total = total.Add(c.Value.Mul(decimal.NewFromInt(c.Count)))
		snapshot.Entries = append(snapshot.Entries, model.BreakdownEntry{
			Value: c.Value,
			Label: label,
			Count: c.Count,
		})
	}
	return total, snapshot, nil
}

func toDenominationResponse(d *model.Denomination) dto.DenominationResponse {
	return dto.DenominationResponse{
		ID:           d.ID.String(),
		Value:        d.Value,
		Label:        d.Label,
		IsActive:     d.IsActive,
		DisplayOrder: d.DisplayOrder,
	}
}
