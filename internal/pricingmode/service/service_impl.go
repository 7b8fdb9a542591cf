package service

import (
	"context"
	"strings"

	"github.com/gosimple/slug"
	"github.com/smallbiznis/shipledger/internal/clock"
	"github.com/smallbiznis/shipledger/internal/errs"
	"github.com/smallbiznis/shipledger/internal/pricingmode/domain"
	"github.com/smallbiznis/shipledger/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("pricingmode.service"),
		clock: p.Clock,
		repo:  p.Repo,
	}
}

// NewResolver exposes the service as the narrow Resolver used by order and reconcile code.
func NewResolver(svc domain.Service) domain.Resolver {
	return svc
}

func (s *Service) Resolve(ctx context.Context, db *gorm.DB, id string) (*domain.PricingMode, error) {
	mode, err := s.Lookup(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if mode == nil {
		return nil, errs.NotFound("pricing_mode", strings.TrimSpace(id))
	}
	if !mode.Active {
		return nil, errs.InactiveReference("pricing_mode", mode.ID)
	}
	return mode, nil
}

func (s *Service) Lookup(ctx context.Context, db *gorm.DB, id string) (*domain.PricingMode, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	if db == nil {
		db = s.db
	}
	return s.repo.FindByID(ctx, db, id)
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]*domain.PricingMode, error) {
	return s.repo.List(ctx, s.db, req.IncludeInactive)
}

func (s *Service) Get(ctx context.Context, id string) (*domain.PricingMode, error) {
	mode, err := s.Lookup(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if mode == nil {
		return nil, errs.NotFound("pricing_mode", strings.TrimSpace(id))
	}
	return mode, nil
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.PricingMode, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, errs.Required("name")
	}

	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = slug.Make(name)
	}
	if id == "" {
		return nil, errs.Validation("id", "invalid_id", "pricing mode id cannot be derived from name")
	}

	mode := &domain.PricingMode{
		ID:      id,
		Name:    name,
		Version: strings.TrimSpace(req.Version),
		Active:  true,
		Notes:   trimmedOrNil(req.Notes),
	}
	if mode.Version == "" {
		mode.Version = "v1"
	}
	if req.Active != nil {
		mode.Active = *req.Active
	}
	if err := applyEnums(mode, &req.Currency, &req.ProfitBase, &req.CargoCharge, &req.ConversionRule, &req.RateSourceRevenue); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	mode.CreatedAt = now
	mode.UpdatedAt = now

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if existing != nil {
			return errs.Invariant("pricing_mode_exists", "pricing mode already exists: "+id)
		}
		if err := s.repo.Create(ctx, tx, mode); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return errs.Invariant("pricing_mode_exists", "pricing mode already exists: "+id)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("pricing mode created", zap.String("pricing_mode_id", id), zap.String("currency", string(mode.Currency)))
	return mode, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.PricingMode, error) {
	mode, err := s.Get(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, errs.Required("name")
		}
		mode.Name = name
	}
	if req.Version != nil {
		if v := strings.TrimSpace(*req.Version); v != "" {
			mode.Version = v
		}
	}
	if req.Active != nil {
		mode.Active = *req.Active
	}
	if req.Notes != nil {
		mode.Notes = trimmedOrNil(req.Notes)
	}
	if err := applyEnums(mode, req.Currency, req.ProfitBase, req.CargoCharge, req.ConversionRule, req.RateSourceRevenue); err != nil {
		return nil, err
	}

	mode.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, mode); err != nil {
		return nil, err
	}
	return mode, nil
}

// Deactivate is a soft delete; orders already priced with the mode keep reconciling.
func (s *Service) Deactivate(ctx context.Context, id string) (*domain.PricingMode, error) {
	mode, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !mode.Active {
		return mode, nil
	}
	mode.Active = false
	mode.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, mode); err != nil {
		return nil, err
	}
	s.log.Info("pricing mode deactivated", zap.String("pricing_mode_id", mode.ID))
	return mode, nil
}

// applyEnums validates and sets each non-nil enum field. On create every pointer is
// non-nil, so blank values are rejected there except the revenue rate source.
func applyEnums(mode *domain.PricingMode, currency, profitBase, cargoCharge, conversionRule, rateSource *string) error {
	if currency != nil {
		v, ok := domain.ParseCurrency(*currency)
		if !ok {
			return errs.Validation("currency", "invalid_currency", "currency must be GBP or BDT")
		}
		mode.Currency = v
	}
	if profitBase != nil {
		v, ok := domain.ParseProfitBase(*profitBase)
		if !ok {
			return errs.Validation("profit_base", "invalid_profit_base", "profit_base must be PRODUCT_ONLY or PRODUCT_PLUS_CARGO")
		}
		mode.ProfitBase = v
	}
	if cargoCharge != nil {
		v, ok := domain.ParseCargoCharge(*cargoCharge)
		if !ok {
			return errs.Validation("cargo_charge", "invalid_cargo_charge", "cargo_charge must be PASS_THROUGH or INCLUDED_IN_PRICE")
		}
		mode.CargoCharge = v
	}
	if conversionRule != nil {
		v, ok := domain.ParseConversionRule(*conversionRule)
		if !ok {
			return errs.Validation("conversion_rule", "invalid_conversion_rule", "conversion_rule must be SEPARATE_RATES or AVG_RATE")
		}
		mode.ConversionRule = v
	}
	if rateSource != nil {
		v, ok := domain.ParseRateSource(*rateSource)
		if !ok {
			return errs.Validation("rate_source_revenue", "invalid_rate_source", "rate_source_revenue must be avg, product or cargo")
		}
		mode.RateSourceRevenue = v
	}
	return nil
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
