package repository

import (
	"context"

	"github.com/smallbiznis/shipledger/internal/pricingmode/domain"
	"github.com/smallbiznis/shipledger/pkg/db/option"
	"github.com/smallbiznis/shipledger/pkg/repository"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) store(db *gorm.DB) repository.Repository[domain.PricingMode] {
	return repository.ProvideStore[domain.PricingMode](db)
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, mode *domain.PricingMode) error {
	return r.store(db).Create(ctx, mode)
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id string) (*domain.PricingMode, error) {
	return r.store(db).FindByID(ctx, id)
}

func (r *repo) List(ctx context.Context, db *gorm.DB, includeInactive bool) ([]*domain.PricingMode, error) {
	opts := []option.QueryOption{
		option.WithSortBy("active", option.DESC),
		option.WithSortBy("id", option.ASC),
	}
	if !includeInactive {
		opts = append(opts, option.WithWhere("active = ?", true))
	}
	return r.store(db).Find(ctx, &domain.PricingMode{}, opts...)
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, mode *domain.PricingMode) error {
	if mode == nil {
		return gorm.ErrInvalidData
	}
	_, err := r.store(db).Update(ctx, mode.ID, map[string]any{
		"name":                mode.Name,
		"version":             mode.Version,
		"currency":            mode.Currency,
		"profit_base":         mode.ProfitBase,
		"cargo_charge":        mode.CargoCharge,
		"conversion_rule":     mode.ConversionRule,
		"rate_source_revenue": mode.RateSourceRevenue,
		"active":              mode.Active,
		"notes":               mode.Notes,
		"updated_at":          mode.UpdatedAt,
	})
	return err
}
