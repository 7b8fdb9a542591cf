package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	allocationdomain "github.com/smallbiznis/shipledger/internal/allocation/domain"
	"github.com/smallbiznis/shipledger/internal/costing"
	"github.com/smallbiznis/shipledger/internal/errs"
	"github.com/smallbiznis/shipledger/internal/observability/logger"
	orderdomain "github.com/smallbiznis/shipledger/internal/order/domain"
	pricingdomain "github.com/smallbiznis/shipledger/internal/pricingmode/domain"
	"github.com/smallbiznis/shipledger/internal/reconcile/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (s *Service) ReconcileShipment(ctx context.Context, shipmentID int64) (*domain.ShipmentSummary, error) {
	summary := &domain.ShipmentSummary{ShipmentID: shipmentID, Warnings: []domain.Warning{}}
	runID, err := s.execute(ctx, domain.KindShipment, shipmentID, func(ctx context.Context, tx *gorm.DB) (runResult, error) {
		if err := s.reconcileShipment(ctx, tx, summary); err != nil {
			return runResult{}, err
		}
		return runResult{rows: summary.RowsUpdated + summary.RowsPartial, warnings: summary.Warnings}, nil
	})
	if err != nil {
		return nil, err
	}
	summary.RunID = runID
	return summary, nil
}

func (s *Service) reconcileShipment(ctx context.Context, tx *gorm.DB, summary *domain.ShipmentSummary) error {
	shipment, err := s.shipments.FindByID(ctx, tx, summary.ShipmentID)
	if err != nil {
		return err
	}
	if shipment == nil {
		return errs.NotFound("shipment", summary.ShipmentID)
	}

	allocations, err := s.allocations.ListByShipment(ctx, tx, shipment.ID)
	if err != nil {
		return err
	}
	if len(allocations) == 0 {
		return nil
	}

	rates := costing.Rates{
		Avg:            shipment.RateAvg,
		Product:        shipment.RateProduct,
		Cargo:          shipment.RateCargo,
		CargoCostPerKg: shipment.CargoCostPerKg,
	}
	items := make(map[int64]*orderdomain.OrderItem)
	modes := make(map[string]*pricingdomain.PricingMode)
	totals := &shipmentTotals{}
	now := s.clock.Now()
	log := logger.WithContext(ctx, s.log)

	for _, a := range allocations {
		item, err := s.cachedItem(ctx, tx, items, a.OrderItemID)
		if err != nil {
			return err
		}
		if item == nil {
			summary.RowsSkipped++
			summary.Warnings = append(summary.Warnings, domain.Warning{
				AllocationID: a.ID,
				OrderItemID:  a.OrderItemID,
				Reason:       domain.ReasonItemNotFound,
			})
			totals.addStored(a)
			continue
		}

		modeID := ""
		if item.PricingModeID != nil {
			modeID = *item.PricingModeID
		}
		mode, err := s.cachedMode(ctx, tx, modes, modeID)
		if err != nil {
			return err
		}
		if mode == nil {
			buy := costing.RoundGBP(item.BuyPriceGBP)
			if err := s.allocations.Update(ctx, tx, a.ID, map[string]any{
				"pricing_mode_id": item.PricingModeID,
				"buy_price_gbp":   buy,
				"product_id":      item.ProductID,
				"updated_at":      now,
			}); err != nil {
				return err
			}
			summary.RowsPartial++
			summary.Warnings = append(summary.Warnings, domain.Warning{
				AllocationID:  a.ID,
				OrderItemID:   item.ID,
				PricingModeID: modeID,
				Reason:        domain.ReasonPricingModeNotFound,
			})
			totals.addStored(a)
			continue
		}

		profitRate := 0.0
		if item.ProfitRate != nil {
			profitRate = *item.ProfitRate
		}
		amounts := costing.Compute(costing.Input{
			AllocatedQty:      a.AllocatedQty,
			ShippedQty:        a.ShippedQty,
			UnitProductWeight: a.UnitProductWeight,
			UnitPackageWeight: a.UnitPackageWeight,
			BuyPriceGBP:       item.BuyPriceGBP,
			ProfitRate:        profitRate,
			FinalUnitGBP:      item.FinalUnitGBP,
			FinalUnitBDT:      item.FinalUnitBDT,
			Rates:             rates,
			Mode:              costing.ModeOf(mode),
		})
		if amounts.UnknownProfitBase {
			log.Warn("unrecognized profit base, using product plus cargo",
				zap.String("pricing_mode_id", mode.ID),
				zap.String("profit_base", string(mode.ProfitBase)),
			)
		}
		if amounts.UnknownCurrency {
			log.Warn("unrecognized pricing currency, revenue set to zero",
				zap.String("pricing_mode_id", mode.ID),
				zap.String("currency", string(mode.Currency)),
			)
		}

		if err := s.allocations.Update(ctx, tx, a.ID, computedFields(item, amounts, now)); err != nil {
			return err
		}
		summary.RowsUpdated++
		totals.addComputed(amounts)
	}

	ok, err := s.shipments.UpdateVersioned(ctx, tx, shipment.ID, shipment.Version, map[string]any{
		"updated_at": now,
	})
	if err != nil {
		return err
	}
	if !ok {
		return errs.ConcurrentModification("shipment", shipment.ID)
	}

	summary.Totals = totals.result()
	return nil
}

func computedFields(item *orderdomain.OrderItem, amounts costing.Amounts, now time.Time) map[string]any {
	return map[string]any{
		"pricing_mode_id":   item.PricingModeID,
		"product_id":        item.ProductID,
		"buy_price_gbp":     amounts.BuyPriceGBP,
		"unit_total_weight": amounts.UnitTotalWeight,
		"allocated_weight":  amounts.AllocatedWeight,
		"shipped_weight":    amounts.ShippedWeight,
		"product_cost_gbp":  amounts.ProductCostGBP,
		"product_cost_bdt":  amounts.ProductCostBDT,
		"cargo_cost_gbp":    amounts.CargoCostGBP,
		"cargo_cost_bdt":    amounts.CargoCostBDT,
		"revenue_bdt":       amounts.RevenueBDT,
		"total_cost_bdt":    amounts.TotalCostBDT,
		"profit_bdt":        amounts.ProfitBDT,
		"updated_at":        now,
	}
}

func (s *Service) cachedItem(ctx context.Context, tx *gorm.DB, cache map[int64]*orderdomain.OrderItem, id int64) (*orderdomain.OrderItem, error) {
	if item, ok := cache[id]; ok {
		return item, nil
	}
	item, err := s.orders.FindItemByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	cache[id] = item
	return item, nil
}

// cachedMode ignores the active flag: deactivated modes still price existing rows.
func (s *Service) cachedMode(ctx context.Context, tx *gorm.DB, cache map[string]*pricingdomain.PricingMode, id string) (*pricingdomain.PricingMode, error) {
	if mode, ok := cache[id]; ok {
		return mode, nil
	}
	mode, err := s.modes.Lookup(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	cache[id] = mode
	return mode, nil
}

type shipmentTotals struct {
	shippedWeight decimal.Decimal
	productCost   int64
	cargoCost     int64
	totalCost     int64
	revenue       int64
	profit        int64
}

func (t *shipmentTotals) addStored(a *allocationdomain.Allocation) {
	t.shippedWeight = t.shippedWeight.Add(decimal.NewFromFloat(a.ShippedWeight))
	t.productCost += allocationdomain.Int64Value(a.ProductCostBDT)
	t.cargoCost += allocationdomain.Int64Value(a.CargoCostBDT)
	t.totalCost += allocationdomain.Int64Value(a.TotalCostBDT)
	t.revenue += allocationdomain.Int64Value(a.RevenueBDT)
	t.profit += allocationdomain.Int64Value(a.ProfitBDT)
}

func (t *shipmentTotals) addComputed(a costing.Amounts) {
	t.shippedWeight = t.shippedWeight.Add(decimal.NewFromFloat(a.ShippedWeight))
	t.productCost += a.ProductCostBDT
	t.cargoCost += a.CargoCostBDT
	t.totalCost += a.TotalCostBDT
	t.revenue += a.RevenueBDT
	t.profit += a.ProfitBDT
}

func (t *shipmentTotals) result() domain.ShipmentTotals {
	return domain.ShipmentTotals{
		ShippedWeight:  t.shippedWeight.InexactFloat64(),
		ProductCostBDT: t.productCost,
		CargoCostBDT:   t.cargoCost,
		TotalCostBDT:   t.totalCost,
		RevenueBDT:     t.revenue,
		ProfitBDT:      t.profit,
	}
}
