package service

import (
	"context"

	"github.com/shopspring/decimal"
	allocationdomain "github.com/smallbiznis/shipledger/internal/allocation/domain"
	"github.com/smallbiznis/shipledger/internal/errs"
	"github.com/smallbiznis/shipledger/internal/observability/logger"
	orderdomain "github.com/smallbiznis/shipledger/internal/order/domain"
	"github.com/smallbiznis/shipledger/internal/reconcile/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var deliveredEpsilon = decimal.NewFromFloat(allocationdomain.OverShipEpsilon)

func (s *Service) ReconcileOrder(ctx context.Context, orderID int64) (*domain.OrderSummary, error) {
	summary := &domain.OrderSummary{OrderID: orderID}
	runID, err := s.execute(ctx, domain.KindOrder, orderID, func(ctx context.Context, tx *gorm.DB) (runResult, error) {
		if err := s.reconcileOrder(ctx, tx, summary); err != nil {
			return runResult{}, err
		}
		return runResult{rows: summary.ItemsUpdated}, nil
	})
	if err != nil {
		return nil, err
	}
	summary.RunID = runID
	return summary, nil
}

type itemSums struct {
	allocated   decimal.Decimal
	shipped     decimal.Decimal
	revenue     int64
	productCost int64
	cargoCost   int64
	totalCost   int64
	profit      int64
}

func (s *itemSums) add(a *allocationdomain.Allocation) {
	s.allocated = s.allocated.Add(decimal.NewFromFloat(a.AllocatedQty))
	s.shipped = s.shipped.Add(decimal.NewFromFloat(a.ShippedQty))
	s.revenue += allocationdomain.Int64Value(a.RevenueBDT)
	s.productCost += allocationdomain.Int64Value(a.ProductCostBDT)
	s.cargoCost += allocationdomain.Int64Value(a.CargoCostBDT)
	s.totalCost += allocationdomain.Int64Value(a.TotalCostBDT)
	s.profit += allocationdomain.Int64Value(a.ProfitBDT)
}

func (s *Service) reconcileOrder(ctx context.Context, tx *gorm.DB, summary *domain.OrderSummary) error {
	order, err := s.orders.FindByID(ctx, tx, summary.OrderID)
	if err != nil {
		return err
	}
	if order == nil {
		return errs.NotFound("order", summary.OrderID)
	}
	items, err := s.orders.ListItems(ctx, tx, order.ID)
	if err != nil {
		return err
	}
	allocations, err := s.allocations.ListByOrder(ctx, tx, order.ID)
	if err != nil {
		return err
	}

	sums := make(map[int64]*itemSums, len(items))
	for _, item := range items {
		sums[item.ID] = &itemSums{}
	}
	for _, a := range allocations {
		// rows pointing at another order's line are not ours to count
		if sum, ok := sums[a.OrderItemID]; ok {
			sum.add(a)
		}
	}

	// every item is checked before anything is written
	for _, item := range items {
		if err := s.checker.Verify(item.ID, item.OrderedQuantity, sums[item.ID].shipped.InexactFloat64()); err != nil {
			s.metrics.RecordOverShipRejected(ctx, "reconcile")
			logger.WithContext(ctx, s.log).Warn("order reconcile aborted by over-ship",
				zap.Int64("order_id", order.ID),
				zap.Int64("order_item_id", item.ID),
				zap.Error(err),
			)
			return err
		}
	}

	now := s.clock.Now()
	var (
		orderQty, allocatedQty, shippedQty, remainingQty decimal.Decimal
		revenue, productCost, cargoCost, totalCost, profit int64
	)
	for _, item := range items {
		sum := sums[item.ID]
		ordered := decimal.NewFromFloat(item.OrderedQuantity)
		remaining := ordered.Sub(sum.shipped)

		allocatedF := sum.allocated.InexactFloat64()
		shippedF := sum.shipped.InexactFloat64()
		remainingF := remaining.InexactFloat64()
		status := itemStatus(sum.shipped, ordered)

		if item.AllocatedQtyTotal != allocatedF || item.ShippedQtyTotal != shippedF ||
			item.RemainingQty != remainingF || item.ItemStatus != status {
			if err := s.orders.UpdateItem(ctx, tx, item.ID, map[string]any{
				"allocated_qty_total": allocatedF,
				"shipped_qty_total":   shippedF,
				"remaining_qty":       remainingF,
				"item_status":         status,
				"updated_at":          now,
			}); err != nil {
				return err
			}
			summary.ItemsUpdated++
		}

		orderQty = orderQty.Add(ordered)
		allocatedQty = allocatedQty.Add(sum.allocated)
		shippedQty = shippedQty.Add(sum.shipped)
		remainingQty = remainingQty.Add(remaining)
		revenue += sum.revenue
		productCost += sum.productCost
		cargoCost += sum.cargoCost
		totalCost += sum.totalCost
		profit += sum.profit
	}

	totals := domain.OrderTotals{
		OrderQty:       orderQty.InexactFloat64(),
		AllocatedQty:   allocatedQty.InexactFloat64(),
		ShippedQty:     shippedQty.InexactFloat64(),
		RemainingQty:   remainingQty.InexactFloat64(),
		RevenueBDT:     revenue,
		ProductCostBDT: productCost,
		CargoCostBDT:   cargoCost,
		TotalCostBDT:   totalCost,
		ProfitBDT:      profit,
	}
	// An order with no lines has nothing to deliver, so its status stays put.
	next := order.Status
	if len(items) > 0 {
		next = advance(order.Status, remainingQty, shippedQty)
	}

	summary.PreviousStatus = string(order.Status)
	summary.Status = string(next)
	summary.Totals = totals

	if next == order.Status && totalsOf(order) == totals {
		return nil
	}

	fields := map[string]any{
		"total_order_qty":        totals.OrderQty,
		"total_allocated_qty":    totals.AllocatedQty,
		"total_shipped_qty":      totals.ShippedQty,
		"total_remaining_qty":    totals.RemainingQty,
		"total_revenue_bdt":      totals.RevenueBDT,
		"total_product_cost_bdt": totals.ProductCostBDT,
		"total_cargo_cost_bdt":   totals.CargoCostBDT,
		"total_cost_bdt":         totals.TotalCostBDT,
		"total_profit_bdt":       totals.ProfitBDT,
		"updated_at":             now,
	}
	if next != order.Status {
		fields["status"] = next
	}
	ok, err := s.orders.UpdateVersioned(ctx, tx, order.ID, order.Version, fields)
	if err != nil {
		return err
	}
	if !ok {
		return errs.ConcurrentModification("order", order.ID)
	}

	if next != order.Status {
		s.metrics.RecordStatusTransition(ctx, "order", string(order.Status), string(next), "system")
		logger.WithContext(ctx, s.log).Info("order status advanced by reconcile",
			zap.Int64("order_id", order.ID),
			zap.String("from", string(order.Status)),
			zap.String("to", string(next)),
		)
	}
	return nil
}

func itemStatus(shipped, ordered decimal.Decimal) orderdomain.ItemStatus {
	switch {
	case shipped.LessThanOrEqual(decimal.Zero):
		return orderdomain.ItemNotStarted
	case shipped.Sub(ordered).Abs().LessThan(deliveredEpsilon):
		return orderdomain.ItemDelivered
	default:
		return orderdomain.ItemPartial
	}
}

// advance only moves orders that are already being fulfilled.
func advance(current orderdomain.Status, remaining, shipped decimal.Decimal) orderdomain.Status {
	if current != orderdomain.StatusProcessing && current != orderdomain.StatusPartiallyDelivered {
		return current
	}
	switch {
	case remaining.IsZero():
		return orderdomain.StatusDelivered
	case shipped.GreaterThan(decimal.Zero):
		return orderdomain.StatusPartiallyDelivered
	default:
		return orderdomain.StatusProcessing
	}
}

func totalsOf(o *orderdomain.Order) domain.OrderTotals {
	return domain.OrderTotals{
		OrderQty:       o.TotalOrderQty,
		AllocatedQty:   o.TotalAllocatedQty,
		ShippedQty:     o.TotalShippedQty,
		RemainingQty:   o.TotalRemainingQty,
		RevenueBDT:     o.TotalRevenueBDT,
		ProductCostBDT: o.TotalProductCostBDT,
		CargoCostBDT:   o.TotalCargoCostBDT,
		TotalCostBDT:   o.TotalCostBDT,
		ProfitBDT:      o.TotalProfitBDT,
	}
}
