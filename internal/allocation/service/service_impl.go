package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shipledger/internal/actorcontext"
	"github.com/smallbiznis/shipledger/internal/allocation/domain"
	"github.com/smallbiznis/shipledger/internal/clock"
	"github.com/smallbiznis/shipledger/internal/errs"
	"github.com/smallbiznis/shipledger/internal/observability/logger"
	"github.com/smallbiznis/shipledger/internal/observability/metrics"
	orderdomain "github.com/smallbiznis/shipledger/internal/order/domain"
	shipmentdomain "github.com/smallbiznis/shipledger/internal/shipment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	Orders    orderdomain.Repository
	Shipments shipmentdomain.Repository
	Checker   domain.OverShipChecker
	Metrics   *metrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	orders    orderdomain.Repository
	shipments shipmentdomain.Repository
	checker   domain.OverShipChecker
	metrics   *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("allocation.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		orders:    p.Orders,
		shipments: p.Shipments,
		checker:   p.Checker,
		metrics:   p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Allocation, error) {
	if _, err := actorcontext.RequireAdmin(ctx); err != nil {
		return nil, err
	}
	if req.ShipmentID == 0 {
		return nil, errs.Required("shipment_id")
	}
	if req.OrderItemID == 0 {
		return nil, errs.Required("order_item_id")
	}
	if req.AllocatedQty <= 0 {
		return nil, errs.Validation("allocated_qty", "invalid_quantity", "allocated_qty must be > 0")
	}
	shipped := 0.0
	if req.ShippedQty != nil {
		shipped = *req.ShippedQty
	}
	if shipped < 0 {
		return nil, errs.Validation("shipped_qty", "invalid_quantity", "shipped_qty cannot be negative")
	}
	if req.UnitProductWeight < 0 || req.UnitPackageWeight < 0 {
		return nil, errs.Validation("unit_weight", "invalid_weight", "unit weights cannot be negative")
	}

	var allocation *domain.Allocation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		shipment, err := s.shipments.FindByID(ctx, tx, req.ShipmentID)
		if err != nil {
			return err
		}
		if shipment == nil {
			return errs.NotFound("shipment", req.ShipmentID)
		}
		if !shipment.Status.AcceptsAllocations() {
			return errs.Forbidden(fmt.Sprintf("shipment %d is %s and accepts no allocations", shipment.ID, shipment.Status))
		}

		item, err := s.orders.FindItemByID(ctx, tx, req.OrderItemID)
		if err != nil {
			return err
		}
		if item == nil {
			return errs.NotFound("order_item", req.OrderItemID)
		}
		order, err := s.orders.FindByID(ctx, tx, item.OrderID)
		if err != nil {
			return err
		}
		if order == nil {
			return errs.NotFound("order", item.OrderID)
		}
		if order.Status == orderdomain.StatusDelivered {
			return errs.Forbidden(fmt.Sprintf("order %d is delivered and locked", order.ID))
		}

		if err := s.checkOverShip(ctx, tx, item.ID, shipped, 0); err != nil {
			return err
		}

		now := s.clock.Now()
		allocation = &domain.Allocation{
			ID:                s.genID.Generate().Int64(),
			ShipmentID:        shipment.ID,
			OrderID:           order.ID,
			OrderItemID:       item.ID,
			ProductID:         item.ProductID,
			AllocatedQty:      req.AllocatedQty,
			ShippedQty:        shipped,
			UnitProductWeight: req.UnitProductWeight,
			UnitPackageWeight: req.UnitPackageWeight,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		allocation.DeriveWeights()
		return s.repo.Create(ctx, tx, allocation)
	})
	if err != nil {
		return nil, err
	}

	logger.WithContext(ctx, s.log).Info("allocation created",
		zap.Int64("allocation_id", allocation.ID),
		zap.Int64("shipment_id", allocation.ShipmentID),
		zap.Int64("order_item_id", allocation.OrderItemID),
	)
	return allocation, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.Allocation, error) {
	if _, err := actorcontext.RequireAdmin(ctx); err != nil {
		return nil, err
	}
	for field, v := range map[string]*float64{
		"allocated_qty":       req.AllocatedQty,
		"shipped_qty":         req.ShippedQty,
		"unit_product_weight": req.UnitProductWeight,
		"unit_package_weight": req.UnitPackageWeight,
	} {
		if v != nil && *v < 0 {
			return nil, errs.Validation(field, "negative_value", field+" cannot be negative")
		}
	}

	var allocation *domain.Allocation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		allocation, err = s.load(ctx, tx, req.ID)
		if err != nil {
			return err
		}

		if req.AllocatedQty != nil {
			allocation.AllocatedQty = *req.AllocatedQty
		}
		if req.ShippedQty != nil {
			if err := s.checkOverShip(ctx, tx, allocation.OrderItemID, *req.ShippedQty, allocation.ID); err != nil {
				return err
			}
			allocation.ShippedQty = *req.ShippedQty
		}
		if req.UnitProductWeight != nil {
			allocation.UnitProductWeight = *req.UnitProductWeight
		}
		if req.UnitPackageWeight != nil {
			allocation.UnitPackageWeight = *req.UnitPackageWeight
		}
		allocation.DeriveWeights()
		allocation.UpdatedAt = s.clock.Now()

		return s.repo.Update(ctx, tx, allocation.ID, map[string]any{
			"allocated_qty":       allocation.AllocatedQty,
			"shipped_qty":         allocation.ShippedQty,
			"unit_product_weight": allocation.UnitProductWeight,
			"unit_package_weight": allocation.UnitPackageWeight,
			"unit_total_weight":   allocation.UnitTotalWeight,
			"allocated_weight":    allocation.AllocatedWeight,
			"shipped_weight":      allocation.ShippedWeight,
			"updated_at":          allocation.UpdatedAt,
		})
	})
	if err != nil {
		return nil, err
	}
	return allocation, nil
}

// Delete removes the row only; callers re-run order reconciliation afterwards.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := actorcontext.RequireAdmin(ctx); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		allocation, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, tx, allocation.ID); err != nil {
			return err
		}
		logger.WithContext(ctx, s.log).Info("allocation deleted",
			zap.Int64("allocation_id", allocation.ID),
			zap.Int64("order_id", allocation.OrderID),
		)
		return nil
	})
}

func (s *Service) ListForShipment(ctx context.Context, shipmentID int64) ([]*domain.Allocation, error) {
	if _, err := actorcontext.RequireAdmin(ctx); err != nil {
		return nil, err
	}
	if shipmentID == 0 {
		return nil, errs.Required("shipment_id")
	}
	return s.repo.ListByShipment(ctx, s.db, shipmentID)
}

func (s *Service) ListForOrder(ctx context.Context, orderID int64) ([]*domain.Allocation, error) {
	if _, err := actorcontext.RequireAdmin(ctx); err != nil {
		return nil, err
	}
	if orderID == 0 {
		return nil, errs.Required("order_id")
	}
	return s.repo.ListByOrder(ctx, s.db, orderID)
}

func (s *Service) checkOverShip(ctx context.Context, tx *gorm.DB, orderItemID int64, delta float64, excludeID int64) error {
	err := s.checker.Check(ctx, tx, orderItemID, delta, excludeID)
	if errs.KindOf(err) == errs.KindInvariantViolation {
		s.metrics.RecordOverShipRejected(ctx, "allocation")
		logger.WithContext(ctx, s.log).Warn("over-ship rejected",
			zap.Int64("order_item_id", orderItemID),
			zap.Float64("delta", delta),
		)
	}
	return err
}

func (s *Service) load(ctx context.Context, db *gorm.DB, id int64) (*domain.Allocation, error) {
	if id == 0 {
		return nil, errs.Required("allocation_id")
	}
	allocation, err := s.repo.FindByID(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if allocation == nil {
		return nil, errs.NotFound("allocation", id)
	}
	return allocation, nil
}
