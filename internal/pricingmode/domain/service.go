package domain

import (
	"context"

	"gorm.io/gorm"
)

// Resolver turns a pricing mode id into its record at the point of use.
type Resolver interface {
	// Resolve fails with NotFound for unknown ids and InactiveReference for deactivated modes.
	Resolve(ctx context.Context, db *gorm.DB, id string) (*PricingMode, error)
	// Lookup returns the record regardless of the active flag, or nil when unknown.
	Lookup(ctx context.Context, db *gorm.DB, id string) (*PricingMode, error)
}

type Service interface {
	Resolver

	List(ctx context.Context, req ListRequest) ([]*PricingMode, error)
	Get(ctx context.Context, id string) (*PricingMode, error)
	Create(ctx context.Context, req CreateRequest) (*PricingMode, error)
	Update(ctx context.Context, req UpdateRequest) (*PricingMode, error)
	Deactivate(ctx context.Context, id string) (*PricingMode, error)
}

type ListRequest struct {
	IncludeInactive bool
}

type CreateRequest struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Version           string  `json:"version"`
	Currency          string  `json:"currency"`
	ProfitBase        string  `json:"profit_base"`
	CargoCharge       string  `json:"cargo_charge"`
	ConversionRule    string  `json:"conversion_rule"`
	RateSourceRevenue string  `json:"rate_source_revenue"`
	Active            *bool   `json:"active"`
	Notes             *string `json:"notes"`
}

type UpdateRequest struct {
	ID                string  `json:"-"`
	Name              *string `json:"name"`
	Version           *string `json:"version"`
	Currency          *string `json:"currency"`
	ProfitBase        *string `json:"profit_base"`
	CargoCharge       *string `json:"cargo_charge"`
	ConversionRule    *string `json:"conversion_rule"`
	RateSourceRevenue *string `json:"rate_source_revenue"`
	Active            *bool   `json:"active"`
	Notes             *string `json:"notes"`
}
