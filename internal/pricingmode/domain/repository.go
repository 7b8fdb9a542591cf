package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, mode *PricingMode) error
	FindByID(ctx context.Context, db *gorm.DB, id string) (*PricingMode, error)
	List(ctx context.Context, db *gorm.DB, includeInactive bool) ([]*PricingMode, error)
	Update(ctx context.Context, db *gorm.DB, mode *PricingMode) error
}
