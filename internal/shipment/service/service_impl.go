package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/shipledger/internal/actorcontext"
	"github.com/smallbiznis/shipledger/internal/clock"
	"github.com/smallbiznis/shipledger/internal/errs"
	"github.com/smallbiznis/shipledger/internal/observability/logger"
	"github.com/smallbiznis/shipledger/internal/observability/metrics"
	"github.com/smallbiznis/shipledger/internal/shipment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.Repository
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("shipment.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		metrics: p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Shipment, error) {
	if _, err := actorcontext.RequireAdmin(ctx); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, errs.Required("name")
	}
	if err := validateRates(req.RateAvg, &req.RateProduct, &req.RateCargo, &req.CargoCostPerKg); err != nil {
		return nil, err
	}

	rateAvg := domain.DeriveRateAvg(req.RateProduct, req.RateCargo)
	if req.RateAvg != nil && *req.RateAvg > 0 {
		rateAvg = *req.RateAvg
	}

	now := s.clock.Now()
	shipment := &domain.Shipment{
		ID:             s.genID.Generate().Int64(),
		Name:           name,
		Status:         domain.StatusDraft,
		RateAvg:        rateAvg,
		RateProduct:    req.RateProduct,
		RateCargo:      req.RateCargo,
		CargoCostPerKg: req.CargoCostPerKg,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Create(ctx, s.db, shipment); err != nil {
		return nil, err
	}
	logger.WithContext(ctx, s.log).Info("shipment created", zap.Int64("shipment_id", shipment.ID))
	return shipment, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Shipment, error) {
	if _, err := actorcontext.RequireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.load(ctx, s.db, id)
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]*domain.Shipment, error) {
	if _, err := actorcontext.RequireAdmin(ctx); err != nil {
		return nil, err
	}
	if req.Status != "" && !req.Status.Valid() {
		return nil, errs.Validation("status", "invalid_status", "unknown shipment status "+string(req.Status))
	}
	return s.repo.List(ctx, s.db, req.Status)
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.Shipment, error) {
	actor, err := actorcontext.RequireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateRates(req.RateAvg, req.RateProduct, req.RateCargo, req.CargoCostPerKg); err != nil {
		return nil, err
	}

	var shipment *domain.Shipment
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		shipment, err = s.load(ctx, tx, req.ID)
		if err != nil {
			return err
		}

		fields := map[string]any{}
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return errs.Required("name")
			}
			fields["name"] = name
			shipment.Name = name
		}
		if req.RateProduct != nil {
			shipment.RateProduct = *req.RateProduct
			fields["rate_product"] = shipment.RateProduct
		}
		if req.RateCargo != nil {
			shipment.RateCargo = *req.RateCargo
			fields["rate_cargo"] = shipment.RateCargo
		}
		if req.RateAvg != nil {
			shipment.RateAvg = *req.RateAvg
			if shipment.RateAvg <= 0 {
				shipment.RateAvg = domain.DeriveRateAvg(shipment.RateProduct, shipment.RateCargo)
			}
			fields["rate_avg"] = shipment.RateAvg
		}
		if req.CargoCostPerKg != nil {
			shipment.CargoCostPerKg = *req.CargoCostPerKg
			fields["cargo_cost_per_kg"] = shipment.CargoCostPerKg
		}

		from := shipment.Status
		if req.Status != nil && *req.Status != from {
			if err := domain.CanTransition(shipment.ID, from, *req.Status); err != nil {
				return err
			}
			shipment.Status = *req.Status
			fields["status"] = shipment.Status
		}
		if len(fields) == 0 {
			return nil
		}

		shipment.UpdatedAt = s.clock.Now()
		fields["updated_at"] = shipment.UpdatedAt
		ok, err := s.repo.UpdateVersioned(ctx, tx, shipment.ID, shipment.Version, fields)
		if err != nil {
			return err
		}
		if !ok {
			return errs.ConcurrentModification("shipment", shipment.ID)
		}
		shipment.Version++

		if from != shipment.Status {
			s.metrics.RecordStatusTransition(ctx, "shipment", string(from), string(shipment.Status), string(actor.Role))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return shipment, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := actorcontext.RequireAdmin(ctx); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		shipment, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		if shipment.Status != domain.StatusDraft && shipment.Status != domain.StatusCancelled {
			return errs.Forbidden(fmt.Sprintf("shipment %d can only be deleted when draft or cancelled, is %s", shipment.ID, shipment.Status))
		}
		if err := s.repo.Delete(ctx, tx, shipment.ID); err != nil {
			return err
		}
		logger.WithContext(ctx, s.log).Info("shipment deleted", zap.Int64("shipment_id", shipment.ID))
		return nil
	})
}

func (s *Service) load(ctx context.Context, db *gorm.DB, id int64) (*domain.Shipment, error) {
	if id == 0 {
		return nil, errs.Required("shipment_id")
	}
	shipment, err := s.repo.FindByID(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if shipment == nil {
		return nil, errs.NotFound("shipment", id)
	}
	return shipment, nil
}

func validateRates(avg, product, cargo *float64, cargoCost *decimal.Decimal) error {
	check := func(field string, v *float64) error {
		if v != nil && *v < 0 {
			return errs.Validation(field, "invalid_rate", field+" must not be negative")
		}
		return nil
	}
	for field, v := range map[string]*float64{"rate_avg": avg, "rate_product": product, "rate_cargo": cargo} {
		if err := check(field, v); err != nil {
			return err
		}
	}
	if cargoCost != nil && cargoCost.IsNegative() {
		return errs.Validation("cargo_cost_per_kg", "invalid_rate", "cargo_cost_per_kg must not be negative")
	}
	return nil
}
