package dto

import "github.com/shopspring/decimal"

type CreateDenominationRequest struct {
	Value        decimal.Decimal `json:"value" validate:"required,gt=0"`
	Label        string          `json:"label" validate:"required,min=1,max=50"`
	DisplayOrder int             `json:"display_order" validate:"min=0"`
}

type UpdateDenominationRequest struct {
	Value        *decimal.Decimal `json:"value" validate:"omitempty,gt=0"`
	Label        *string          `json:"label" validate:"omitempty,min=1,max=50"`
	DisplayOrder *int             `json:"display_order" validate:"omitempty,min=0"`
}

type ReorderItem struct {
	ID           string `json:"id" validate:"required,uuid"`
	DisplayOrder int    `json:"display_order" validate:"min=0"`
}

type ReorderRequest struct {
	Items []ReorderItem `json:"items" validate:"required,min=1,dive"`
}

type DenominationResponse struct {
	ID           string          `json:"id"`
	Value        decimal.Decimal `json:"value"`
	Label        string          `json:"label"`
	IsActive     bool            `json:"is_active"`
	DisplayOrder int             `json:"display_order"`
}
