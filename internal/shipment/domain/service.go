package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Shipment, error)
	Get(ctx context.Context, id int64) (*Shipment, error)
	List(ctx context.Context, req ListRequest) ([]*Shipment, error)
	Update(ctx context.Context, req UpdateRequest) (*Shipment, error)
	Delete(ctx context.Context, id int64) error
}

type CreateRequest struct {
	Name           string          `json:"name"`
	RateAvg        *float64        `json:"rate_avg"`
	RateProduct    float64         `json:"rate_product"`
	RateCargo      float64         `json:"rate_cargo"`
	CargoCostPerKg decimal.Decimal `json:"cargo_cost_per_kg"`
}

type UpdateRequest struct {
	ID             int64            `json:"-"`
	Name           *string          `json:"name"`
	Status         *Status          `json:"status"`
	RateAvg        *float64         `json:"rate_avg"`
	RateProduct    *float64         `json:"rate_product"`
	RateCargo      *float64         `json:"rate_cargo"`
	CargoCostPerKg *decimal.Decimal `json:"cargo_cost_per_kg"`
}

type ListRequest struct {
	Status Status
}
